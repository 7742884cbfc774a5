package auth

import (
	"errors"
	"github.com/Alcereo/passgate/pkg/common"
)

type ProfileValue struct {
	Value string
	Type  string
}

// RawProfile is the provider profile as parsed from the user info endpoint,
// before normalization.
type RawProfile struct {
	Provider    string
	Id          string
	Name        common.ProfileName
	DisplayName string
	Emails      []ProfileValue
	Photos      []ProfileValue
}

// ProfileParser turns a user info response body into a RawProfile.
type ProfileParser func(body []byte) (*RawProfile, error)

// ExtractProfile normalizes a raw profile. The last listed email and photo win.
// A profile without an email fails to resolve; a missing photo leaves Picture empty.
func ExtractProfile(raw *RawProfile) (*common.ExternalProfile, error) {
	if raw == nil {
		return nil, &ResolutionError{Err: errors.New("profile is empty")}
	}
	if raw.Id == "" {
		return nil, &ResolutionError{Provider: raw.Provider, Err: errors.New("profile has no id")}
	}

	email := lastValue(raw.Emails)
	if email == "" {
		return nil, &ResolutionError{Provider: raw.Provider, ExternalId: raw.Id, Err: errors.New("profile has no email")}
	}

	return &common.ExternalProfile{
		Provider:    raw.Provider,
		Id:          raw.Id,
		Name:        raw.Name,
		DisplayName: raw.DisplayName,
		Email:       email,
		Picture:     lastValue(raw.Photos),
	}, nil
}

func lastValue(values []ProfileValue) string {
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1].Value
}
