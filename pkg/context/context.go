package context

import (
	"fmt"
	"github.com/Alcereo/passgate/pkg/auth"
	"github.com/Alcereo/passgate/pkg/auth/facebook"
	"github.com/Alcereo/passgate/pkg/auth/google"
	"github.com/Alcereo/passgate/pkg/auth/linkedin"
	"github.com/Alcereo/passgate/pkg/cache"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/Alcereo/passgate/pkg/filters"
	"github.com/Alcereo/passgate/pkg/metrics"
	"github.com/Alcereo/passgate/pkg/model"
	"github.com/Alcereo/passgate/pkg/proxy"
	"github.com/Alcereo/passgate/pkg/serializers"
	"github.com/Alcereo/passgate/pkg/session"
	log "github.com/sirupsen/logrus"
	"io"
	"net/http"
	"time"
)

type context struct {
	sessionCacheAdapters map[string]filters.SessionCachePort
	scopeAdapters        map[string]session.ScopePort
	appFilters           []common.RequestChainedHandler
	serverMultiplexer    *http.ServeMux
	metrics              *metrics.Metrics
	metricsPattern       string
	authModule           *auth.Module
	closers              []io.Closer
}

func NewContext() *context {
	return &context{
		sessionCacheAdapters: make(map[string]filters.SessionCachePort),
		scopeAdapters:        make(map[string]session.ScopePort),
		serverMultiplexer:    http.NewServeMux(),
	}
}

func (ctx *context) SetupCache(adapters []CacheAdapter) {
	for _, adapter := range adapters {
		switch adapter.Type {
		case GoCache:
			provider := cache.NewGoCacheSessionCacheProvider(
				adapter.ExpirationTimeHours,
				adapter.EvictScheduleTimeHours,
			)
			// GoCache can be both
			ctx.sessionCacheAdapters[adapter.Identifier] = provider
			ctx.scopeAdapters[adapter.Identifier] = provider
		default:
			panic(fmt.Errorf("Undefined session filter cache adapter type: %v.\n", adapter.Type))
		}
	}
}

func (ctx *context) SetupMetrics(config MetricsConfiguration) {
	if !config.Enabled {
		return
	}
	ctx.metrics = metrics.NewMetrics()
	ctx.metricsPattern = config.Pattern
	if ctx.metricsPattern == "" {
		ctx.metricsPattern = "/metrics"
	}
	log.Debugf("Metrics enabled. Pattern: %s", ctx.metricsPattern)
}

// SetupFilters builds the application filter chain every request passes.
func (ctx *context) SetupFilters(filters []Filter) {
	for _, filter := range filters {
		handler := ctx.BuildFilterHandler(filter)
		if handler == nil {
			continue
		}
		ctx.Use(handler)
	}
}

// Use appends a filter to the application chain.
func (ctx *context) Use(filter common.RequestChainedHandler) {
	ctx.appFilters = append(ctx.appFilters, filter)
}

// SetupAuth runs the auth module phases: validation, strategies
// initialization and mounting into the application chain.
func (ctx *context) SetupAuth(config AuthConfiguration) error {
	scopes := ctx.scopeAdapters[config.CacheAdapterIdentifier]
	if scopes == nil {
		return fmt.Errorf("Session scope cache adapter with identifier '%v' not found.\n", config.CacheAdapterIdentifier)
	}

	strategies := make([]auth.Strategy, 0, len(config.Strategies))
	for _, strategy := range config.Strategies {
		strategies = append(strategies, buildStrategy(strategy))
	}

	var httpClient *http.Client
	if config.RequestTimeoutSeconds > 0 {
		httpClient = &http.Client{Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second}
	}

	module, err := auth.New(auth.Config{
		Strategies:     strategies,
		Defaults:       config.Defaults,
		Sessions:       scopes,
		StateSecret:    config.StateSecret,
		LogoutRedirect: config.LogoutRedirect,
		Metrics:        ctx.metrics,
		HttpClient:     httpClient,
	})
	if err != nil {
		return err
	}

	backend, err := ctx.buildModelBackend(config.Model)
	if err != nil {
		return err
	}
	if err := module.InitStrategies(backend); err != nil {
		return err
	}
	if _, err := module.Mount(ctx); err != nil {
		return err
	}
	ctx.authModule = module
	return nil
}

func buildStrategy(config StrategyConfig) auth.Strategy {
	switch config.Type {
	case LinkedInStrategy:
		log.Debugf("Adding LinkedIn strategy")
		return linkedin.New(config.Options)
	case FacebookStrategy:
		log.Debugf("Adding Facebook strategy")
		return facebook.New(config.Options)
	case GoogleStrategy:
		log.Debugf("Adding Google strategy")
		return google.New(config.Options)
	default:
		panic(fmt.Errorf("Undefined strategy type: %v.\n", config.Type))
	}
}

func (ctx *context) buildModelBackend(config ModelConfiguration) (model.Backend, error) {
	switch config.Type {
	case MemoryModel, "":
		log.Debugf("Using in-memory user model")
		return model.NewMemoryBackend(config.EvictScheduleTimeHours), nil
	case PostgresModel:
		log.Debugf("Using postgres user model")
		backend, err := model.NewPostgresBackend(config.Dsn)
		if err != nil {
			return nil, err
		}
		ctx.closers = append(ctx.closers, backend)
		return backend, nil
	default:
		panic(fmt.Errorf("Undefined model type: %v.\n", config.Type))
	}
}

func (ctx *context) SetupRouters(routers []Router) {
	for _, router := range routers {
		switch router.Type {
		case ReverseProxy:
			log.Debugf(
				"Adding Reverse proxy router. Pattern: %s; Target: %s",
				router.Pattern,
				router.TargetUrl,
			)

			handler, err := proxy.NewReverseProxyHandler(router.TargetUrl)
			if err != nil {
				panic(fmt.Errorf("Parsing target url '%v' error: %v.\n", router.TargetUrl, err))
			}

			rootFilterHandler := ctx.BuildFilterHandlers(router.Filters, handler)
			ctx.serverMultiplexer.Handle(router.Pattern, route{handler: rootFilterHandler})
		default:
			panic(fmt.Errorf("Undefined router type: %v.\n", router.Type))
		}
	}
}

func (ctx *context) BuildFilterHandlers(filters []Filter, mainHandler common.RequestHandler) (rootHandler common.RequestHandler) {
	if filters == nil {
		return mainHandler
	}

	currentHandler := mainHandler

	for i := len(filters) - 1; i >= 0; i-- {
		filter := filters[i]

		handler := ctx.BuildFilterHandler(filter)

		if handler == nil {
			continue
		}

		handler.SetNext(currentHandler)
		currentHandler = handler
	}

	return currentHandler
}

func (ctx *context) BuildFilterHandler(filter Filter) common.RequestChainedHandler {
	switch filter.Type {
	case LogFilter:
		log.Debugf("Adding Log filter. Name: %s", filter.Name)
		logFilter := filters.CreateLogFilter(filter.Name, filter.Template)
		if logFilter == nil {
			return nil
		}
		return logFilter
	case SessionFilter:
		log.Debugf("Adding session filter. Name: %s", filter.Name)
		cacheAdapter := ctx.sessionCacheAdapters[filter.CacheAdapterIdentifier]
		if cacheAdapter == nil {
			panic(fmt.Errorf("Session cache adapter with identifier '%v' not found.\n", filter.CacheAdapterIdentifier))
		}
		return filters.CreateSessionFilter(
			filter.Name,
			filter.CookieName,
			cacheAdapter,
			filter.CookieTTLHours,
			filter.CookieRenewBeforeHours,
			filter.CookiePath,
			filter.CookieDomain,
		)
	case UserAuthenticationFilter:
		log.Debugf("Adding user authentication filter. Name: %s", filter.Name)
		return auth.NewUserAuthenticationFilter(
			filter.Name,
			filter.UserDataRequired,
		)
	case UserDataSenderFilter:
		log.Debugf("Adding user data sending filter. Name: %s", filter.Name)
		scopes := ctx.scopeAdapters[filter.CacheAdapterIdentifier]
		if scopes == nil {
			panic(fmt.Errorf("Session scope cache adapter with identifier '%v' not found.\n", filter.CacheAdapterIdentifier))
		}
		serializer := buildUserDataSerializer(&filter)
		return auth.NewUserDataSenderFilter(
			scopes,
			filter.Name,
			serializer,
			filter.UserDataHeader,
		)
	case CsrfFilter:
		log.Debugf("Adding CSRF filter. Name: %s", filter.Name)
		safeMethods := filter.SafeMethods
		if len(safeMethods) == 0 {
			safeMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
		}
		csrfFilter, err := filters.NewCsrfFilter(filter.Name, filter.HeaderName, safeMethods, filter.Secret)
		if err != nil {
			panic(fmt.Errorf("Creating CSRF filter error: %v.\n", err))
		}
		return csrfFilter
	default:
		panic(fmt.Errorf("Undefined filter type: %v.\n", filter.Type))
	}
}

func buildUserDataSerializer(filter *Filter) auth.UserDataSerializer {
	switch filter.UserDataTypeSerializer.Type {
	case JwtUserDataSerializer:
		return serializers.NewJwtUserDataSerializer(
			filter.UserDataTypeSerializer.Secret,
		)
	default:
		panic(fmt.Errorf("Undefined user data serializer type: %v.\n", filter.UserDataTypeSerializer.Type))
	}
}

// route keeps the filter chain of a router reachable through the multiplexer.
type route struct {
	handler common.RequestHandler
}

func (route route) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	route.handler.Handle(log.NewEntry(log.StandardLogger()), writer, request)
}

// dispatcher ends the application chain by passing requests to the routers.
type dispatcher struct {
	mux *http.ServeMux
}

func (dispatcher *dispatcher) Handle(log *log.Entry, writer http.ResponseWriter, request *http.Request) {
	handler, pattern := dispatcher.mux.Handler(request)
	if matched, ok := handler.(route); ok {
		matched.handler.Handle(log.WithField("pattern", pattern), writer, request)
		return
	}
	handler.ServeHTTP(writer, request)
}

// BuildHandler links the application filters in front of the routers.
func (ctx *context) BuildHandler() http.Handler {
	var root common.RequestHandler = &dispatcher{mux: ctx.serverMultiplexer}
	for i := len(ctx.appFilters) - 1; i >= 0; i-- {
		ctx.appFilters[i].SetNext(root)
		root = ctx.appFilters[i]
	}

	application := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		root.Handle(log.NewEntry(log.StandardLogger()), writer, request)
	})
	if ctx.metrics == nil {
		return application
	}

	outer := http.NewServeMux()
	outer.Handle(ctx.metricsPattern, ctx.metrics.Handler())
	outer.Handle("/", application)
	return outer
}

func (ctx *context) BuildServer(port int) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%v", port),
		Handler: ctx.BuildHandler(),
	}
}

// Close releases model connections.
func (ctx *context) Close() error {
	var result error
	for _, closer := range ctx.closers {
		if err := closer.Close(); err != nil && result == nil {
			result = err
		}
	}
	return result
}
