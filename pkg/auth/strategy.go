package auth

import (
	"context"
	"errors"
	"fmt"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/Alcereo/passgate/pkg/model"
	"golang.org/x/oauth2"
	"net/http"
)

// Authenticator hands out the login and callback handlers of a strategy.
type Authenticator interface {
	Authenticate(strategy string) common.RequestHandler
	Callback(strategy string) common.RequestHandler
}

// Strategy is one pluggable login provider.
//
// The module calls Configure, RegisterRoutes and Init once each, in this
// order, while initializing strategies.
type Strategy interface {
	Name() string
	Configure(defaults Options) error
	RegisterRoutes(router *Router, authenticator Authenticator) error
	Init(env StrategyEnv) error
}

// StrategyEnv is what the module shares with a strategy during Init.
type StrategyEnv struct {
	Model               model.Model
	Router              *Router
	UpdateClientSession func(fields map[string]interface{})
	AuthConfig          Options
	Resolver            ProviderResolver
	HttpClient          *http.Client
	Use                 func(flow *OAuth2Flow)
}

// ProviderSpec describes a provider for OAuthStrategy.
type ProviderSpec struct {
	Name         string
	Endpoint     oauth2.Endpoint
	UserInfoUrl  string
	Scopes       []string
	ParseProfile ProfileParser
}

// OAuthStrategy is the authorization code strategy shared by all providers.
type OAuthStrategy struct {
	spec       ProviderSpec
	overrides  Options
	options    Options
	configured bool
}

func NewOAuthStrategy(spec ProviderSpec, overrides Options) *OAuthStrategy {
	return &OAuthStrategy{
		spec:      spec,
		overrides: overrides,
	}
}

func (strategy *OAuthStrategy) Name() string {
	return strategy.spec.Name
}

// Options are the effective options. Empty until Configure succeeds.
func (strategy *OAuthStrategy) Options() Options {
	return strategy.options
}

func (strategy *OAuthStrategy) providerDefaults() Options {
	return Options{
		LoginPath:   "/auth/" + strategy.spec.Name,
		CallbackUrl: "/auth/" + strategy.spec.Name + "/callback",
		Scopes:      strategy.spec.Scopes,
		AuthUrl:     strategy.spec.Endpoint.AuthURL,
		TokenUrl:    strategy.spec.Endpoint.TokenURL,
		UserInfoUrl: strategy.spec.UserInfoUrl,
	}
}

// Configure layers auth-level defaults, provider defaults and the strategy
// overrides, then validates the result.
func (strategy *OAuthStrategy) Configure(defaults Options) error {
	if strategy.spec.ParseProfile == nil {
		return &ConfigurationError{Component: strategy.spec.Name, Field: "profile-parser", Reason: "Provide profile parser"}
	}
	options := MergeOptions(defaults, strategy.providerDefaults(), strategy.overrides)
	if err := options.Validate(strategy.spec.Name); err != nil {
		return err
	}
	if _, err := callbackPath(options.CallbackUrl); err != nil {
		return &ConfigurationError{Component: strategy.spec.Name, Field: "callback-url", Reason: err.Error()}
	}
	strategy.options = options
	strategy.configured = true
	return nil
}

func (strategy *OAuthStrategy) RegisterRoutes(router *Router, authenticator Authenticator) error {
	if !strategy.configured {
		return fmt.Errorf("strategy %v is not configured", strategy.spec.Name)
	}
	path, err := callbackPath(strategy.options.CallbackUrl)
	if err != nil {
		return err
	}
	if err := router.Get(strategy.options.LoginPath, authenticator.Authenticate(strategy.spec.Name)); err != nil {
		return err
	}
	return router.Get(path, authenticator.Callback(strategy.spec.Name))
}

func (strategy *OAuthStrategy) Init(env StrategyEnv) error {
	if !strategy.configured {
		return fmt.Errorf("strategy %v is not configured", strategy.spec.Name)
	}
	if env.Resolver == nil {
		return fmt.Errorf("strategy %v: resolver is nil", strategy.spec.Name)
	}

	env.UpdateClientSession(map[string]interface{}{
		strategy.spec.Name: map[string]interface{}{
			"clientId": strategy.options.ClientId,
			"loginUrl": strategy.options.LoginPath,
		},
	})

	env.Use(NewOAuth2Flow(FlowConfig{
		Name: strategy.spec.Name,
		OAuth2: oauth2.Config{
			ClientID:     strategy.options.ClientId,
			ClientSecret: strategy.options.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   strategy.options.AuthUrl,
				TokenURL:  strategy.options.TokenUrl,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: strategy.options.CallbackUrl,
			Scopes:      strategy.options.Scopes,
		},
		UserInfoUrl:     strategy.options.UserInfoUrl,
		ParseProfile:    strategy.spec.ParseProfile,
		Verify:          strategy.verifier(env),
		SuccessRedirect: strategy.options.SuccessRedirect,
		FailureRedirect: strategy.options.FailureRedirect,
		HttpClient:      env.HttpClient,
	}))
	return nil
}

// verifier never panics: anything raised while extracting or resolving ends
// up in the returned error.
func (strategy *OAuthStrategy) verifier(env StrategyEnv) VerifyFunc {
	return func(ctx context.Context, token *oauth2.Token, raw *RawProfile) (id common.UserIdentifier, err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				id = ""
				err = &ResolutionError{Provider: strategy.spec.Name, Err: fmt.Errorf("panic: %v", recovered)}
			}
		}()

		profile, err := ExtractProfile(raw)
		if err != nil {
			return "", err
		}
		id, err = env.Resolver.FindOrCreateUser(ctx, env.Model, profile, strategy.options)
		if err != nil {
			var resolutionErr *ResolutionError
			if !errors.As(err, &resolutionErr) {
				err = &ResolutionError{Provider: profile.Provider, ExternalId: profile.Id, Err: err}
			}
			return "", err
		}
		return id, nil
	}
}
