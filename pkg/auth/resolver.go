package auth

import (
	"context"
	"errors"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/Alcereo/passgate/pkg/model"
)

// ProviderResolver maps an external profile to a local user.
//
// Repeated calls with the same profile id return the same identifier. The
// resolver itself does not make lookup-then-create atomic; concurrent first
// logins are deduplicated by the model's CreateUser.
type ProviderResolver interface {
	FindOrCreateUser(ctx context.Context, m model.Model, profile *common.ExternalProfile, options Options) (common.UserIdentifier, error)
}

type modelResolver struct{}

func NewModelResolver() ProviderResolver {
	return modelResolver{}
}

func (modelResolver) FindOrCreateUser(ctx context.Context, m model.Model, profile *common.ExternalProfile, options Options) (common.UserIdentifier, error) {
	if profile == nil {
		return "", &ResolutionError{Err: errors.New("profile is nil")}
	}
	if m == nil {
		return "", &ResolutionError{Provider: profile.Provider, ExternalId: profile.Id, Err: errors.New("model is nil")}
	}

	id, found, err := m.FindUser(ctx, profile.Provider, profile.Id)
	if err != nil {
		return "", &ResolutionError{Provider: profile.Provider, ExternalId: profile.Id, Err: err}
	}
	if found {
		return id, nil
	}

	id, err = m.CreateUser(ctx, profile)
	if err != nil {
		return "", &ResolutionError{Provider: profile.Provider, ExternalId: profile.Id, Err: err}
	}
	return id, nil
}
