// Package model holds the data-model handle the auth strategies resolve
// external profiles against.
package model

import (
	"context"
	"fmt"
	"github.com/Alcereo/passgate/pkg/common"
	"time"
)

type User struct {
	Id          string    `db:"id"`
	Provider    string    `db:"provider"`
	ExternalId  string    `db:"external_id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	Picture     string    `db:"picture"`
	CreatedAt   time.Time `db:"created_at"`
}

// Model is the shared data-model handle. Implementations are safe for concurrent use.
type Model interface {
	FindUser(ctx context.Context, provider string, externalId string) (common.UserIdentifier, bool, error)

	// CreateUser stores a user for the profile. When a user with the same
	// provider and external id already exists, its identifier is returned
	// instead of creating a duplicate.
	CreateUser(ctx context.Context, profile *common.ExternalProfile) (common.UserIdentifier, error)
}

// Backend produces model handles. The auth module asks for exactly one.
type Backend interface {
	CreateModel() (Model, error)
}

func newUser(id string, profile *common.ExternalProfile) *User {
	return &User{
		Id:          id,
		Provider:    profile.Provider,
		ExternalId:  profile.Id,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		Picture:     profile.Picture,
		CreatedAt:   time.Now(),
	}
}

func checkProfile(profile *common.ExternalProfile) error {
	if profile == nil {
		return fmt.Errorf("profile is nil")
	}
	if profile.Provider == "" || profile.Id == "" {
		return fmt.Errorf("profile provider and id are required. Provider: '%v', id: '%v'", profile.Provider, profile.Id)
	}
	return nil
}
