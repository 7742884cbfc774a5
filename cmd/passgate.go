package main

import (
	"fmt"
	ctx "github.com/Alcereo/passgate/pkg/context"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
	"strings"
)

func main() {

	configInit()
	config := loadConfig()
	setupLogging(config.LogLevel)

	bytes, _ := yaml.Marshal(config)
	log.Tracef("Resolved config:\n%+v", string(bytes))

	context := ctx.NewContext()
	defer func() { _ = context.Close() }()
	context.SetupCache(config.CacheAdapters)
	context.SetupMetrics(config.Metrics)
	context.SetupFilters(config.Filters)
	if err := context.SetupAuth(config.Auth); err != nil {
		log.Fatalf("Auth setup error. Reason: %v", err)
	}
	context.SetupRouters(config.Routers)

	port := viper.GetInt("port")
	log.Printf("Server starting on port %v", port)
	log.Fatal(context.BuildServer(port).ListenAndServe())
}

func setupLogging(logLevel ctx.LogLevel) {
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})

	switch logLevel {
	case ctx.Info:
		log.SetLevel(log.InfoLevel)
	case ctx.Debug:
		log.SetLevel(log.DebugLevel)
	case ctx.Trace:
		log.SetLevel(log.TraceLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

func loadConfig() *ctx.ProxyConfiguration {
	var config ctx.ProxyConfiguration
	err := viper.Unmarshal(&config)
	if err != nil {
		panic(fmt.Errorf("Fatal error config file: %s \n", err))
	}

	viper.SetEnvPrefix("")
	for i := range config.Auth.Strategies {
		strategy := &config.Auth.Strategies[i]
		prefix := strings.ToUpper(strings.TrimSuffix(string(strategy.Type), "Strategy"))

		if clientId := envValue(prefix + "_CLIENT_ID"); clientId != "" {
			strategy.Options.ClientId = clientId
		}
		if clientSecret := envValue(prefix + "_CLIENT_SECRET"); clientSecret != "" {
			strategy.Options.ClientSecret = clientSecret
		}
	}
	if stateSecret := envValue("AUTH_STATE_SECRET"); stateSecret != "" {
		config.Auth.StateSecret = stateSecret
	}
	if dsn := envValue("AUTH_MODEL_DSN"); dsn != "" {
		config.Auth.Model.Dsn = dsn
	}
	return &config
}

func envValue(name string) string {
	_ = viper.BindEnv(name)
	return viper.GetString(name)
}

func configInit() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd")

	// Defaults
	viper.SetDefault("port", 8080)

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("Fatal error config file: %s \n", err))
	}
}
