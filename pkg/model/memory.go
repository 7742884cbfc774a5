package model

import (
	"context"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/patrickmn/go-cache"
	"github.com/satori/go.uuid"
	"time"
)

type memoryBackend struct {
	users *cache.Cache
}

// NewMemoryBackend keeps users in process memory. Records never expire.
func NewMemoryBackend(evictScheduleTimeHours int) *memoryBackend {
	return &memoryBackend{
		users: cache.New(cache.NoExpiration, time.Hour*time.Duration(evictScheduleTimeHours)),
	}
}

func (backend *memoryBackend) CreateModel() (Model, error) {
	return &memoryModel{users: backend.users}, nil
}

type memoryModel struct {
	users *cache.Cache
}

func (m *memoryModel) FindUser(ctx context.Context, provider string, externalId string) (common.UserIdentifier, bool, error) {
	user, found := m.users.Get(userKey(provider, externalId))
	if !found {
		return "", false, nil
	}
	return common.UserIdentifier(user.(*User).Id), true, nil
}

func (m *memoryModel) CreateUser(ctx context.Context, profile *common.ExternalProfile) (common.UserIdentifier, error) {
	if err := checkProfile(profile); err != nil {
		return "", err
	}
	key := userKey(profile.Provider, profile.Id)
	user := newUser(uuid.NewV4().String(), profile)

	// Add is atomic: a concurrent login for the same external id loses here
	// and reads the winner's record.
	if err := m.users.Add(key, user, cache.NoExpiration); err != nil {
		existing, found := m.users.Get(key)
		if !found {
			return "", err
		}
		return common.UserIdentifier(existing.(*User).Id), nil
	}
	return common.UserIdentifier(user.Id), nil
}

func userKey(provider string, externalId string) string {
	return "user:" + provider + ":" + externalId
}
