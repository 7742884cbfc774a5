package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"gopkg.in/go-playground/validator.v9"
	"io"
)

var ErrMalformedFact = errors.New("malformed encrypted fact")

// Encryptor seals short facts (session ids, OAuth state) with AES-GCM.
// Every sealed value carries its own random nonce.
type Encryptor struct {
	Gcm cipher.AEAD `validate:"required"`
}

var validate = validator.New()

func NewEncryptor(privateKey string) (*Encryptor, error) {
	if privateKey == "" {
		return nil, errors.New("private key is required to create Encryptor")
	}
	key := sha256.Sum256([]byte(privateKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	encryptor := &Encryptor{Gcm: gcm}
	if err := validate.Struct(encryptor); err != nil {
		return nil, err
	}
	return encryptor, nil
}

func (encryptor *Encryptor) EncryptFact(fact string) (string, error) {
	nonce := make([]byte, encryptor.Gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := encryptor.Gcm.Seal(nonce, nonce, []byte(fact), nil)
	return hex.EncodeToString(sealed), nil
}

func (encryptor *Encryptor) DecryptFact(encryptedFact string) (string, error) {
	encryptedBytes, err := hex.DecodeString(encryptedFact)
	if err != nil {
		return "", err
	}
	nonceSize := encryptor.Gcm.NonceSize()
	if len(encryptedBytes) < nonceSize+encryptor.Gcm.Overhead() {
		return "", ErrMalformedFact
	}
	nonce, ciphertext := encryptedBytes[:nonceSize], encryptedBytes[nonceSize:]
	plaintext, err := encryptor.Gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
