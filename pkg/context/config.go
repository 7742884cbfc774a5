package context

import "github.com/Alcereo/passgate/pkg/auth"

type RouterType string

const (
	ReverseProxy RouterType = "ReverseProxy"
)

type FilterType string

const (
	LogFilter                FilterType = "LogFilter"
	SessionFilter            FilterType = "SessionFilter"
	UserAuthenticationFilter FilterType = "UserAuthenticationFilter"
	UserDataSenderFilter     FilterType = "UserDataSenderFilter"
	CsrfFilter               FilterType = "CsrfFilter"
)

type CacheAdapterType string

const (
	GoCache CacheAdapterType = "GoCache"
)

type CacheAdapter struct {
	Identifier             string
	Type                   CacheAdapterType
	ExpirationTimeHours    int `mapstructure:"evict-time-hours"`
	EvictScheduleTimeHours int `mapstructure:"evict-schedule-time-hours"`
}

type UserDataSerializerType string

const (
	JwtUserDataSerializer UserDataSerializerType = "JwtUserDataSerializer"
)

type UserDataSerializer struct {
	Type   UserDataSerializerType
	Secret string
}

type Filter struct {
	Type                   FilterType
	Name                   string
	Template               string
	CacheAdapterIdentifier string             `mapstructure:"cache-adapter-identifier"`
	CookieDomain           string             `mapstructure:"cookie-domain"`
	CookiePath             string             `mapstructure:"cookie-path"`
	CookieName             string             `mapstructure:"cookie-name"`
	CookieTTLHours         int                `mapstructure:"cookie-ttl-hours"`
	CookieRenewBeforeHours int                `mapstructure:"cookie-renew-before-hours"`
	UserDataRequired       bool               `mapstructure:"user-data-required"`
	UserDataTypeSerializer UserDataSerializer `mapstructure:"user-data-serializer"`
	UserDataHeader         string             `mapstructure:"user-data-header"`
	HeaderName             string             `mapstructure:"header-name"`
	SafeMethods            []string           `mapstructure:"safe-methods"`
	Secret                 string
}

type Router struct {
	TargetUrl string `mapstructure:"target-url"`
	Type      RouterType
	Pattern   string
	Filters   []Filter
}

type StrategyType string

const (
	LinkedInStrategy StrategyType = "LinkedInStrategy"
	FacebookStrategy StrategyType = "FacebookStrategy"
	GoogleStrategy   StrategyType = "GoogleStrategy"
)

type StrategyConfig struct {
	Type    StrategyType
	Options auth.Options `mapstructure:",squash"`
}

type ModelType string

const (
	MemoryModel   ModelType = "Memory"
	PostgresModel ModelType = "Postgres"
)

type ModelConfiguration struct {
	Type                   ModelType
	Dsn                    string
	EvictScheduleTimeHours int `mapstructure:"evict-schedule-time-hours"`
}

type AuthConfiguration struct {
	// Session scopes are kept in this cache adapter. It should be the one of the session filter.
	CacheAdapterIdentifier string `mapstructure:"cache-adapter-identifier"`
	StateSecret            string `mapstructure:"state-secret"`
	LogoutRedirect         string `mapstructure:"logout-redirect"`
	RequestTimeoutSeconds  int    `mapstructure:"request-timeout-seconds"`
	Defaults               auth.Options
	Strategies             []StrategyConfig
	Model                  ModelConfiguration
}

type MetricsConfiguration struct {
	Enabled bool
	Pattern string
}

type LogLevel string

const (
	Debug LogLevel = "debug"
	Trace LogLevel = "trace"
	Info  LogLevel = "info"
)

type ProxyConfiguration struct {
	LogLevel      LogLevel       `mapstructure:"log-level"`
	CacheAdapters []CacheAdapter `mapstructure:"cache-adapters"`
	// Filters run in front of every route, before the auth module.
	Filters []Filter
	Auth    AuthConfiguration
	Routers []Router
	Metrics MetricsConfiguration
}
