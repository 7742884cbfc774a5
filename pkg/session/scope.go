// Package session exposes per-session key/value scopes on top of the session
// cache. A scope is addressed by a dotted path, e.g. "_session.auth".
package session

import (
	"errors"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/spf13/cast"
	"net/http"
)

const (
	AuthScope     = "_session.auth"
	PassportScope = "_session.passport"
)

var ErrNoSession = errors.New("session not found in the request context")

type ScopePort interface {
	GetScope(id common.SessionId, path string) (map[string]interface{}, bool)
	SetScope(id common.SessionId, path string, values map[string]interface{}) error
}

type Scope struct {
	port    ScopePort
	session *common.Session
	path    string
}

func NewScope(port ScopePort, session *common.Session, path string) *Scope {
	return &Scope{
		port:    port,
		session: session,
		path:    path,
	}
}

// FromRequest resolves the scope of the session bound to the request by the session filter.
func FromRequest(port ScopePort, request *http.Request, path string) (*Scope, error) {
	session, found := common.SessionFromContext(request.Context())
	if !found {
		return nil, ErrNoSession
	}
	return NewScope(port, session, path), nil
}

func (scope *Scope) Path() string {
	return scope.path
}

// Get returns a copy of the scope values. Missing scope is an empty map.
func (scope *Scope) Get() map[string]interface{} {
	values, found := scope.port.GetScope(scope.session.Id, scope.path)
	if !found || values == nil {
		return map[string]interface{}{}
	}
	return values
}

func (scope *Scope) GetString(key string) string {
	return cast.ToString(scope.Get()[key])
}

func (scope *Scope) Set(values map[string]interface{}) error {
	return scope.port.SetScope(scope.session.Id, scope.path, values)
}

// Merge adds fields on top of the current values. Existing keys not present in
// fields are kept, colliding keys are overwritten.
func (scope *Scope) Merge(fields map[string]interface{}) error {
	values := scope.Get()
	for key, value := range fields {
		values[key] = value
	}
	return scope.Set(values)
}

func (scope *Scope) Del(key string) error {
	values := scope.Get()
	if _, found := values[key]; !found {
		return nil
	}
	delete(values, key)
	return scope.Set(values)
}
