package auth

import "fmt"

// ConfigurationError reports a missing or invalid setting. It is fatal to
// module startup.
type ConfigurationError struct {
	Component string
	Field     string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("[%v] configuration error. Field: '%v'. Reason: %v", e.Component, e.Field, e.Reason)
}

func missingField(component string, field string) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Field:     field,
		Reason:    "Provide " + field,
	}
}

// ResolutionError reports a failed profile-to-user mapping. It never crosses
// the OAuth callback boundary; the login fails instead.
type ResolutionError struct {
	Provider   string
	ExternalId string
	Err        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %v user '%v' error. Reason: %v", e.Provider, e.ExternalId, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ExternalProviderError wraps failures of the third-party OAuth exchange.
type ExternalProviderError struct {
	Provider string
	Stage    string
	Err      error
}

func (e *ExternalProviderError) Error() string {
	return fmt.Sprintf("%v %v error. Reason: %v", e.Provider, e.Stage, e.Err)
}

func (e *ExternalProviderError) Unwrap() error {
	return e.Err
}
