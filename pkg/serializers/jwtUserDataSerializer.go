package serializers

import (
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/dgrijalva/jwt-go"
	"time"
)

type jwtUserDataSerializer struct {
	hmacSampleSecret string
	now              func() time.Time
}

func NewJwtUserDataSerializer(hmacSampleSecret string) *jwtUserDataSerializer {
	return &jwtUserDataSerializer{
		hmacSampleSecret: hmacSampleSecret,
		now:              time.Now,
	}
}

// Serialize signs the user identifier and the client session with HS256.
func (serializer *jwtUserDataSerializer) Serialize(user common.UserIdentifier, clientSession map[string]interface{}) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"identifier": string(user),
		"session":    clientSession,
		"iat":        serializer.now().Unix(),
	})
	return token.SignedString([]byte(serializer.hmacSampleSecret))
}
