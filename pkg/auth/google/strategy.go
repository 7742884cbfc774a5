package google

import (
	"encoding/json"
	"github.com/Alcereo/passgate/pkg/auth"
	"github.com/Alcereo/passgate/pkg/common"
	"golang.org/x/oauth2/endpoints"
)

const (
	Name        = "google"
	UserInfoUrl = "https://openidconnect.googleapis.com/v1/userinfo"
)

var Scopes = []string{"openid", "profile", "email"}

func New(options auth.Options) *auth.OAuthStrategy {
	return auth.NewOAuthStrategy(auth.ProviderSpec{
		Name:         Name,
		Endpoint:     endpoints.Google,
		UserInfoUrl:  UserInfoUrl,
		Scopes:       Scopes,
		ParseProfile: ParseProfile,
	}, options)
}

type GoogleUserInfo struct {
	Identifier string `json:"sub"`
	Username   string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	Email      string `json:"email"`
	Locale     string `json:"locale"`
}

func ParseProfile(body []byte) (*auth.RawProfile, error) {
	var googleUserInfo GoogleUserInfo
	if err := json.Unmarshal(body, &googleUserInfo); err != nil {
		return nil, err
	}

	profile := &auth.RawProfile{
		Provider: Name,
		Id:       googleUserInfo.Identifier,
		Name: common.ProfileName{
			GivenName:  googleUserInfo.GivenName,
			FamilyName: googleUserInfo.FamilyName,
		},
		DisplayName: googleUserInfo.Username,
	}
	if googleUserInfo.Email != "" {
		profile.Emails = []auth.ProfileValue{{Value: googleUserInfo.Email, Type: "account"}}
	}
	if googleUserInfo.Picture != "" {
		profile.Photos = []auth.ProfileValue{{Value: googleUserInfo.Picture}}
	}
	return profile, nil
}
