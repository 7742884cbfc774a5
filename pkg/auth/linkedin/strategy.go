// Package linkedin is the "Sign In with LinkedIn" strategy over OpenID Connect.
package linkedin

import (
	"encoding/json"
	"github.com/Alcereo/passgate/pkg/auth"
	"github.com/Alcereo/passgate/pkg/common"
	"golang.org/x/oauth2/endpoints"
)

const (
	Name        = "linkedin"
	UserInfoUrl = "https://api.linkedin.com/v2/userinfo"
)

var Scopes = []string{"openid", "profile", "email"}

func New(options auth.Options) *auth.OAuthStrategy {
	return auth.NewOAuthStrategy(auth.ProviderSpec{
		Name:         Name,
		Endpoint:     endpoints.LinkedIn,
		UserInfoUrl:  UserInfoUrl,
		Scopes:       Scopes,
		ParseProfile: ParseProfile,
	}, options)
}

type userInfo struct {
	Identifier string `json:"sub"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	Email      string `json:"email"`
}

func ParseProfile(body []byte) (*auth.RawProfile, error) {
	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}

	profile := &auth.RawProfile{
		Provider: Name,
		Id:       info.Identifier,
		Name: common.ProfileName{
			GivenName:  info.GivenName,
			FamilyName: info.FamilyName,
		},
		DisplayName: info.Name,
	}
	if info.Email != "" {
		profile.Emails = []auth.ProfileValue{{Value: info.Email}}
	}
	if info.Picture != "" {
		profile.Photos = []auth.ProfileValue{{Value: info.Picture}}
	}
	return profile, nil
}
