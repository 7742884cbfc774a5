package auth

import (
	"context"
	"errors"
	"fmt"
	"github.com/Alcereo/passgate/pkg/common"
	"golang.org/x/oauth2"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	StageAuthorize = "authorization"
	StageExchange  = "token exchange"
	StageProfile   = "profile fetch"
)

// VerifyFunc resolves the fetched profile to a local user.
type VerifyFunc func(ctx context.Context, token *oauth2.Token, raw *RawProfile) (common.UserIdentifier, error)

type FlowConfig struct {
	Name            string
	OAuth2          oauth2.Config
	UserInfoUrl     string
	ParseProfile    ProfileParser
	Verify          VerifyFunc
	SuccessRedirect string
	FailureRedirect string
	HttpClient      *http.Client
}

// OAuth2Flow runs the authorization code grant of one provider.
type OAuth2Flow struct {
	config FlowConfig
}

func NewOAuth2Flow(config FlowConfig) *OAuth2Flow {
	return &OAuth2Flow{config: config}
}

func (flow *OAuth2Flow) Name() string {
	return flow.config.Name
}

func (flow *OAuth2Flow) SuccessRedirect() string {
	return flow.config.SuccessRedirect
}

func (flow *OAuth2Flow) FailureRedirect() string {
	return flow.config.FailureRedirect
}

// AuthCodeURL builds the provider consent URL for the request.
func (flow *OAuth2Flow) AuthCodeURL(request *http.Request, state string) string {
	conf := flow.oauth2Config(request)
	return conf.AuthCodeURL(state)
}

// Complete handles the provider redirect back: checks the provider answer,
// exchanges the code, fetches the profile and verifies it.
func (flow *OAuth2Flow) Complete(ctx context.Context, request *http.Request) (common.UserIdentifier, error) {
	query := request.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		reason := providerErr
		if description := query.Get("error_description"); description != "" {
			reason += ": " + description
		}
		return "", flow.providerError(StageAuthorize, errors.New(reason))
	}
	code := query.Get("code")
	if code == "" {
		return "", flow.providerError(StageAuthorize, errors.New("'code' query param not found or empty"))
	}

	if flow.config.HttpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, flow.config.HttpClient)
	}
	conf := flow.oauth2Config(request)

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return "", flow.providerError(StageExchange, err)
	}

	body, err := flow.fetchUserInfo(ctx, conf, token)
	if err != nil {
		return "", flow.providerError(StageProfile, err)
	}

	raw, err := flow.config.ParseProfile(body)
	if err != nil {
		return "", flow.providerError(StageProfile, err)
	}
	if raw != nil && raw.Provider == "" {
		raw.Provider = flow.config.Name
	}

	return flow.config.Verify(ctx, token, raw)
}

func (flow *OAuth2Flow) fetchUserInfo(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, flow.config.UserInfoUrl, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := conf.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %v: %v", resp.StatusCode, string(body))
	}
	return body, nil
}

// oauth2Config returns a copy with the redirect URL resolved for the request.
func (flow *OAuth2Flow) oauth2Config(request *http.Request) *oauth2.Config {
	conf := flow.config.OAuth2
	conf.Scopes = append([]string(nil), flow.config.OAuth2.Scopes...)
	conf.RedirectURL = ResolveCallbackUrl(request, flow.config.OAuth2.RedirectURL)
	return &conf
}

func (flow *OAuth2Flow) providerError(stage string, err error) error {
	return &ExternalProviderError{Provider: flow.config.Name, Stage: stage, Err: err}
}

// ResolveCallbackUrl makes a relative callback absolute against the request
// host. Scheme is taken from X-Forwarded-Proto, then from TLS.
func ResolveCallbackUrl(request *http.Request, callbackUrl string) string {
	parsed, err := url.Parse(callbackUrl)
	if err != nil || parsed.IsAbs() {
		return callbackUrl
	}

	scheme := "http"
	if request.TLS != nil {
		scheme = "https"
	}
	if forwarded := request.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
	}

	host := request.Host
	if forwardedHost := request.Header.Get("X-Forwarded-Host"); forwardedHost != "" {
		host = strings.TrimSpace(strings.SplitN(forwardedHost, ",", 2)[0])
	}

	base := &url.URL{Scheme: scheme, Host: host, Path: "/"}
	return base.ResolveReference(parsed).String()
}

// callbackPath is the route path of a possibly absolute callback URL.
func callbackPath(callbackUrl string) (string, error) {
	parsed, err := url.Parse(callbackUrl)
	if err != nil {
		return "", err
	}
	if parsed.Path == "" {
		return "", fmt.Errorf("callback url '%v' has no path", callbackUrl)
	}
	return parsed.Path, nil
}
