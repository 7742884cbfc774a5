package auth

import (
	"github.com/spf13/cast"
	"gopkg.in/go-playground/validator.v9"
	"reflect"
	"strings"
)

// Options is the provider configuration of a strategy. The same shape
// carries the auth-level defaults merged under every strategy's overrides.
type Options struct {
	ClientId        string   `mapstructure:"client-id" validate:"required"`
	ClientSecret    string   `mapstructure:"client-secret" validate:"required"`
	CallbackUrl     string   `mapstructure:"callback-url" validate:"required"`
	LoginPath       string   `mapstructure:"login-path" validate:"required,startswith=/"`
	Scopes          []string `mapstructure:"scopes"`
	SuccessRedirect string   `mapstructure:"success-redirect"`
	FailureRedirect string   `mapstructure:"failure-redirect"`
	AuthUrl         string   `mapstructure:"auth-url" validate:"required,url"`
	TokenUrl        string   `mapstructure:"token-url" validate:"required,url"`
	UserInfoUrl     string   `mapstructure:"user-info-url" validate:"required,url"`
}

// MergeOptions layers the given options from low to high precedence. Empty
// values do not override.
func MergeOptions(layers ...Options) Options {
	var result Options
	for _, layer := range layers {
		result.ClientId = pick(result.ClientId, layer.ClientId)
		result.ClientSecret = pick(result.ClientSecret, layer.ClientSecret)
		result.CallbackUrl = pick(result.CallbackUrl, layer.CallbackUrl)
		result.LoginPath = pick(result.LoginPath, layer.LoginPath)
		result.SuccessRedirect = pick(result.SuccessRedirect, layer.SuccessRedirect)
		result.FailureRedirect = pick(result.FailureRedirect, layer.FailureRedirect)
		result.AuthUrl = pick(result.AuthUrl, layer.AuthUrl)
		result.TokenUrl = pick(result.TokenUrl, layer.TokenUrl)
		result.UserInfoUrl = pick(result.UserInfoUrl, layer.UserInfoUrl)
		if len(layer.Scopes) > 0 {
			result.Scopes = append([]string(nil), layer.Scopes...)
		}
	}
	return result
}

func pick(current string, override string) string {
	if override != "" {
		return override
	}
	return current
}

var validate = newValidator()

// newValidator reports fields by their config key, e.g. "client-id".
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate returns a *ConfigurationError naming the first invalid field.
func (options Options) Validate(component string) error {
	err := validate.Struct(options)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return &ConfigurationError{Component: component, Field: "", Reason: err.Error()}
	}
	fieldError := validationErrors[0]
	if fieldError.Tag() == "required" {
		return missingField(component, fieldError.Field())
	}
	return &ConfigurationError{
		Component: component,
		Field:     fieldError.Field(),
		Reason:    "Value '" + cast.ToString(fieldError.Value()) + "' does not satisfy '" + fieldError.Tag() + "'",
	}
}
