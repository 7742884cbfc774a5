package auth

import (
	"fmt"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/Alcereo/passgate/pkg/crypt"
	"github.com/Alcereo/passgate/pkg/metrics"
	"github.com/Alcereo/passgate/pkg/model"
	"github.com/Alcereo/passgate/pkg/session"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"net/http"
	"sync"
)

const (
	LogoutPath  = "/auth/logout"
	SessionPath = "/auth/session"
)

type State int

const (
	Unconfigured State = iota
	Validating
	StrategiesInitializing
	AwaitingSessionPhase
	RouterMounted
)

func (state State) String() string {
	switch state {
	case Unconfigured:
		return "Unconfigured"
	case Validating:
		return "Validating"
	case StrategiesInitializing:
		return "StrategiesInitializing"
	case AwaitingSessionPhase:
		return "AwaitingSessionPhase"
	case RouterMounted:
		return "RouterMounted"
	default:
		return fmt.Sprintf("State(%d)", int(state))
	}
}

type Config struct {
	Strategies []Strategy
	// Defaults are merged under the options of every strategy.
	Defaults       Options
	Sessions       session.ScopePort
	StateSecret    string
	LogoutRedirect string
	Resolver       ProviderResolver
	Metrics        *metrics.Metrics
	HttpClient     *http.Client
}

// Application is the host filter chain the module mounts into.
type Application interface {
	Use(filter common.RequestChainedHandler)
}

type SerializeFunc func(user common.UserIdentifier) (interface{}, error)
type DeserializeFunc func(value interface{}) (common.UserIdentifier, error)

// Module composes the configured strategies over one router, one model and
// one list of client session augmentations.
type Module struct {
	mutex         sync.Mutex
	state         State
	strategies    []Strategy
	defaults      Options
	sessions      session.ScopePort
	router        *Router
	model         model.Model
	augmentations []map[string]interface{}
	flows         map[string]*OAuth2Flow
	encryptor     *crypt.Encryptor
	resolver      ProviderResolver
	metrics       *metrics.Metrics
	httpClient    *http.Client

	logoutRedirect string

	serializeUser   SerializeFunc
	deserializeUser DeserializeFunc
}

// New validates the configuration and registers the default auth routes.
// Nothing is registered when validation fails.
func New(config Config) (*Module, error) {
	module := &Module{state: Unconfigured}
	module.state = Validating

	if len(config.Strategies) == 0 {
		return nil, &ConfigurationError{Component: "auth", Field: "strategies", Reason: "Provide at least one strategy"}
	}
	names := make(map[string]bool, len(config.Strategies))
	for i, strategy := range config.Strategies {
		if strategy == nil {
			return nil, &ConfigurationError{Component: "auth", Field: "strategies", Reason: fmt.Sprintf("Strategy #%v is nil", i)}
		}
		if names[strategy.Name()] {
			return nil, &ConfigurationError{Component: "auth", Field: "strategies", Reason: "Duplicate strategy " + strategy.Name()}
		}
		names[strategy.Name()] = true
	}
	if config.Sessions == nil {
		return nil, missingField("auth", "sessions")
	}

	secret := config.StateSecret
	if secret == "" {
		logrus.Warnf("Auth state secret is empty. Using a random one, logins will not survive restart.")
		secret = uuid.NewV4().String()
	}
	encryptor, err := crypt.NewEncryptor(secret)
	if err != nil {
		return nil, &ConfigurationError{Component: "auth", Field: "state-secret", Reason: err.Error()}
	}

	resolver := config.Resolver
	if resolver == nil {
		resolver = NewModelResolver()
	}
	logoutRedirect := config.LogoutRedirect
	if logoutRedirect == "" {
		logoutRedirect = "/"
	}

	module.strategies = append([]Strategy(nil), config.Strategies...)
	module.defaults = config.Defaults
	module.sessions = config.Sessions
	module.router = NewRouter()
	module.flows = make(map[string]*OAuth2Flow)
	module.encryptor = encryptor
	module.resolver = resolver
	module.metrics = config.Metrics
	module.httpClient = config.HttpClient
	module.logoutRedirect = logoutRedirect
	module.serializeUser = func(user common.UserIdentifier) (interface{}, error) {
		return string(user), nil
	}
	module.deserializeUser = func(value interface{}) (common.UserIdentifier, error) {
		return common.UserIdentifier(cast.ToString(value)), nil
	}

	if err := module.router.Get(LogoutPath, common.RequestHandlerFunc(module.handleLogout)); err != nil {
		return nil, err
	}
	if err := module.router.Get(SessionPath, common.RequestHandlerFunc(module.handleSession)); err != nil {
		return nil, err
	}
	return module, nil
}

func (module *Module) State() State {
	module.mutex.Lock()
	defer module.mutex.Unlock()
	return module.state
}

func (module *Module) Router() *Router {
	return module.router
}

// InitStrategies creates the shared model and initializes every strategy in
// order. The first failure is returned; strategies initialized before it stay
// registered.
func (module *Module) InitStrategies(backend model.Backend) error {
	module.mutex.Lock()
	defer module.mutex.Unlock()

	if module.state != Validating {
		return fmt.Errorf("auth module is %v, strategies can be initialized only once after New", module.state)
	}
	module.state = StrategiesInitializing

	if backend == nil {
		return missingField("auth", "model")
	}
	m, err := backend.CreateModel()
	if err != nil {
		return fmt.Errorf("creating auth model error. Reason: %w", err)
	}
	module.model = m

	env := StrategyEnv{
		Model:               m,
		Router:              module.router,
		UpdateClientSession: module.updateClientSession,
		AuthConfig:          module.defaults,
		Resolver:            module.resolver,
		HttpClient:          module.httpClient,
		Use:                 module.use,
	}
	for _, strategy := range module.strategies {
		if err := strategy.Configure(module.defaults); err != nil {
			return err
		}
		if err := strategy.RegisterRoutes(module.router, module); err != nil {
			return err
		}
		if err := strategy.Init(env); err != nil {
			return err
		}
		logrus.Debugf("Auth strategy %v initialized", strategy.Name())
	}

	module.state = AwaitingSessionPhase
	return nil
}

// UpdateClientSession registers fields merged into the client session scope
// on every request once the module is mounted.
func (module *Module) UpdateClientSession(fields map[string]interface{}) {
	module.mutex.Lock()
	defer module.mutex.Unlock()
	module.updateClientSession(fields)
}

func (module *Module) updateClientSession(fields map[string]interface{}) {
	if module.state == RouterMounted {
		logrus.Warnf("Client session update registered after mount is ignored: %v", fields)
		return
	}
	module.augmentations = append(module.augmentations, fields)
}

func (module *Module) use(flow *OAuth2Flow) {
	module.flows[flow.Name()] = flow
}

// Mount installs the augmentation filters, the passport filter and the auth
// router into the application, once. Repeated calls return false.
func (module *Module) Mount(app Application) (bool, error) {
	module.mutex.Lock()
	defer module.mutex.Unlock()

	if module.state == RouterMounted {
		logrus.Warnf("Auth router is already mounted. Skip.")
		return false, nil
	}
	if module.state != AwaitingSessionPhase {
		return false, fmt.Errorf("auth module is %v, it can be mounted only after strategies are initialized", module.state)
	}

	for _, fields := range module.augmentations {
		app.Use(newSessionAugmentFilter(module.sessions, fields))
	}
	app.Use(&passportFilter{module: module})
	app.Use(module.router)

	module.state = RouterMounted
	logrus.Infof("Auth router mounted. Routes: %v", module.router.Routes())
	return true, nil
}
