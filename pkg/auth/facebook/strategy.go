package facebook

import (
	"encoding/json"
	"github.com/Alcereo/passgate/pkg/auth"
	"github.com/Alcereo/passgate/pkg/common"
	"golang.org/x/oauth2/endpoints"
)

const (
	Name        = "facebook"
	UserInfoUrl = "https://graph.facebook.com/v19.0/me?fields=id,name,first_name,last_name,email,picture.type(large)"
)

var Scopes = []string{"email", "public_profile"}

func New(options auth.Options) *auth.OAuthStrategy {
	return auth.NewOAuthStrategy(auth.ProviderSpec{
		Name:         Name,
		Endpoint:     endpoints.Facebook,
		UserInfoUrl:  UserInfoUrl,
		Scopes:       Scopes,
		ParseProfile: ParseProfile,
	}, options)
}

type graphUser struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Picture   struct {
		Data struct {
			Url          string `json:"url"`
			IsSilhouette bool   `json:"is_silhouette"`
		} `json:"data"`
	} `json:"picture"`
}

// ParseProfile reads a Graph API /me response. Users registered by phone
// have no email.
func ParseProfile(body []byte) (*auth.RawProfile, error) {
	var user graphUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, err
	}

	profile := &auth.RawProfile{
		Provider: Name,
		Id:       user.Id,
		Name: common.ProfileName{
			GivenName:  user.FirstName,
			FamilyName: user.LastName,
		},
		DisplayName: user.Name,
	}
	if user.Email != "" {
		profile.Emails = []auth.ProfileValue{{Value: user.Email}}
	}
	if url := user.Picture.Data.Url; url != "" && !user.Picture.Data.IsSilhouette {
		profile.Photos = []auth.ProfileValue{{Value: url}}
	}
	return profile, nil
}
