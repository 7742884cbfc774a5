package auth

import (
	"errors"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/Alcereo/passgate/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newStubModule(t *testing.T, sessions session.ScopePort, strategies ...Strategy) *Module {
	module, err := New(Config{
		Strategies:  strategies,
		Sessions:    sessions,
		StateSecret: "state-secret",
	})
	require.NoError(t, err)
	return module
}

func TestNewWithoutStrategiesFails(t *testing.T) {
	module, err := New(Config{Sessions: newSessionStore(), StateSecret: "secret"})

	assert.Nil(t, module)
	var configErr *ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "strategies", configErr.Field)
}

func TestNewWithDuplicateStrategiesFails(t *testing.T) {
	var calls []string
	_, err := New(Config{
		Strategies: []Strategy{
			&stubStrategy{name: "a", calls: &calls},
			&stubStrategy{name: "a", calls: &calls},
		},
		Sessions: newSessionStore(),
	})

	var configErr *ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "strategies", configErr.Field)
	assert.Empty(t, calls)
}

func TestNewRegistersDefaultRoutesOnly(t *testing.T) {
	var calls []string
	module := newStubModule(t, newSessionStore(), &stubStrategy{name: "a", calls: &calls})

	assert.Equal(t, Validating, module.State())
	assert.Equal(t, []string{"GET " + LogoutPath, "GET " + SessionPath}, module.Router().Routes())
	assert.Empty(t, calls)
}

func TestInitStrategiesInOrderWithOneModel(t *testing.T) {
	var calls []string
	a := &stubStrategy{name: "a", calls: &calls}
	b := &stubStrategy{name: "b", calls: &calls}
	module := newStubModule(t, newSessionStore(), a, b)
	backend := newCountingBackend()

	require.NoError(t, module.InitStrategies(backend))

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, []string{"configure:a", "routes:a", "init:a", "configure:b", "routes:b", "init:b"}, calls)
	assert.Equal(t, AwaitingSessionPhase, module.State())
	assert.Same(t, module.Router(), a.env.Router)
	assert.Equal(t, a.env.Model, b.env.Model)
	assert.Contains(t, module.Router().Routes(), "GET /auth/b")
}

func TestInitStrategiesStopsOnFirstFailure(t *testing.T) {
	var calls []string
	configErr := &ConfigurationError{Component: "b", Field: "client-id", Reason: "Provide client-id"}
	module := newStubModule(t, newSessionStore(),
		&stubStrategy{name: "a", calls: &calls},
		&stubStrategy{name: "b", calls: &calls, configureErr: configErr},
		&stubStrategy{name: "c", calls: &calls},
	)

	err := module.InitStrategies(newCountingBackend())

	assert.Same(t, configErr, err)
	assert.Equal(t, []string{"configure:a", "routes:a", "init:a", "configure:b"}, calls)
	assert.Contains(t, module.Router().Routes(), "GET /auth/a")
	assert.Equal(t, StrategiesInitializing, module.State())
}

func TestInitStrategiesReturnsModelError(t *testing.T) {
	var calls []string
	module := newStubModule(t, newSessionStore(), &stubStrategy{name: "a", calls: &calls})
	backend := &countingBackend{err: errors.New("no connection")}

	err := module.InitStrategies(backend)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, backend.err))
	assert.Empty(t, calls)
}

func TestInitStrategiesOnlyOnce(t *testing.T) {
	var calls []string
	module := newStubModule(t, newSessionStore(), &stubStrategy{name: "a", calls: &calls})
	backend := newCountingBackend()

	require.NoError(t, module.InitStrategies(backend))
	assert.Error(t, module.InitStrategies(backend))
	assert.Equal(t, 1, backend.calls)
}

func TestMountBeforeInitFails(t *testing.T) {
	var calls []string
	module := newStubModule(t, newSessionStore(), &stubStrategy{name: "a", calls: &calls})
	app := &testApp{}

	mounted, err := module.Mount(app)

	assert.False(t, mounted)
	assert.Error(t, err)
	assert.Empty(t, app.filters)
}

func TestMountHappensOnce(t *testing.T) {
	var calls []string
	module := newStubModule(t, newSessionStore(),
		&stubStrategy{name: "a", calls: &calls, fields: map[string]interface{}{"a": 1}},
		&stubStrategy{name: "b", calls: &calls, fields: map[string]interface{}{"b": 2}},
	)
	require.NoError(t, module.InitStrategies(newCountingBackend()))
	app := &testApp{}

	mounted, err := module.Mount(app)
	require.NoError(t, err)
	assert.True(t, mounted)
	assert.Len(t, app.filters, 4)
	assert.Same(t, module.Router(), app.filters[3])

	mounted, err = module.Mount(app)
	require.NoError(t, err)
	assert.False(t, mounted)
	assert.Len(t, app.filters, 4)
	assert.Equal(t, RouterMounted, module.State())
}

func TestClientSessionAugmentationsCompose(t *testing.T) {
	var calls []string
	sessions := newSessionStore()
	module := newStubModule(t, sessions,
		&stubStrategy{name: "a", calls: &calls, fields: map[string]interface{}{"a": 1}},
		&stubStrategy{name: "b", calls: &calls, fields: map[string]interface{}{"b": 2}},
	)
	require.NoError(t, module.InitStrategies(newCountingBackend()))
	app := &testApp{}
	_, err := module.Mount(app)
	require.NoError(t, err)
	final := &recordingHandler{}
	handler := app.handler(sessions, final)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/resource", nil))

	require.NotNil(t, final.request)
	currentSession, found := common.SessionFromContext(final.request.Context())
	require.True(t, found)
	values, _ := sessions.GetScope(currentSession.Id, session.AuthScope)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 2}, values)
}

func TestClientSessionAugmentationKeepsExistingKeys(t *testing.T) {
	sessions := newSessionStore()
	current := &common.Session{Id: "session-1"}
	require.NoError(t, sessions.SetScope(current.Id, session.AuthScope, map[string]interface{}{"x": "kept", "a": 0}))
	filter := newSessionAugmentFilter(sessions, map[string]interface{}{"a": 1})
	final := &recordingHandler{}
	filter.SetNext(final)
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request = request.WithContext(contextWithSession(request, current))

	filter.Handle(testLog(), httptest.NewRecorder(), request)

	values, _ := sessions.GetScope(current.Id, session.AuthScope)
	assert.Equal(t, map[string]interface{}{"x": "kept", "a": 1}, values)
	assert.NotNil(t, final.request)
}

func TestUpdateClientSessionAfterMountIgnored(t *testing.T) {
	var calls []string
	module := newStubModule(t, newSessionStore(), &stubStrategy{name: "a", calls: &calls})
	require.NoError(t, module.InitStrategies(newCountingBackend()))
	_, err := module.Mount(&testApp{})
	require.NoError(t, err)

	module.UpdateClientSession(map[string]interface{}{"late": true})

	assert.Empty(t, module.augmentations)
}
