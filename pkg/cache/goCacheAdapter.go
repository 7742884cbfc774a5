package cache

import (
	"fmt"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/patrickmn/go-cache"
	"github.com/satori/go.uuid"
	"time"
)

const (
	cookiePrefix = "cookie:"
	scopePrefix  = "scope:"
)

type goCacheSessionCacheAdapter struct {
	cookieCache *cache.Cache
}

func NewGoCacheSessionCacheProvider(expirationTimeHours int, evictScheduleTimeHours int) *goCacheSessionCacheAdapter {
	cookieCache := cache.New(
		time.Hour*time.Duration(expirationTimeHours),
		time.Hour*time.Duration(evictScheduleTimeHours),
	)
	return &goCacheSessionCacheAdapter{
		cookieCache: cookieCache,
	}
}

func (adapter *goCacheSessionCacheAdapter) PutSession(session *common.Session) error {
	return adapter.cookieCache.Add(cookiePrefix+string(session.Cookie), session, cache.DefaultExpiration)
}

func (adapter *goCacheSessionCacheAdapter) GetSession(cookie common.SessionCookie) (*common.Session, bool) {
	session, found := adapter.cookieCache.Get(cookiePrefix + string(cookie))
	if found {
		return session.(*common.Session), true
	} else {
		return nil, false
	}
}

func (adapter *goCacheSessionCacheAdapter) RemoveSession(session *common.Session) {
	adapter.cookieCache.Delete(cookiePrefix + string(session.Cookie))
}

func (*goCacheSessionCacheAdapter) CreateNewIdentifier() common.SessionId {
	return common.SessionId(uuid.NewV4().String())
}

func (*goCacheSessionCacheAdapter) CreateNewCookie() common.SessionCookie {
	return common.SessionCookie(uuid.NewV4().String())
}

// ScopePort implementation.
// Scopes are keyed by session id, so they survive cookie renewal.

func (adapter *goCacheSessionCacheAdapter) GetScope(id common.SessionId, path string) (map[string]interface{}, bool) {
	values, found := adapter.cookieCache.Get(scopeKey(id, path))
	if !found {
		return nil, false
	}
	return copyValues(values.(map[string]interface{})), true
}

func (adapter *goCacheSessionCacheAdapter) SetScope(id common.SessionId, path string, values map[string]interface{}) error {
	if id == "" {
		return fmt.Errorf("session id is empty for scope: %v", path)
	}
	adapter.cookieCache.Set(scopeKey(id, path), copyValues(values), cache.DefaultExpiration)
	return nil
}

func scopeKey(id common.SessionId, path string) string {
	return scopePrefix + string(id) + ":" + path
}

func copyValues(values map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(values))
	for key, value := range values {
		result[key] = value
	}
	return result
}
