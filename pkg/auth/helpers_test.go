package auth

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/Alcereo/passgate/pkg/cache"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/Alcereo/passgate/pkg/filters"
	"github.com/Alcereo/passgate/pkg/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLog() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}

type sessionStore interface {
	filters.SessionCachePort
	GetScope(id common.SessionId, path string) (map[string]interface{}, bool)
	SetScope(id common.SessionId, path string, values map[string]interface{}) error
}

func newSessionStore() sessionStore {
	return cache.NewGoCacheSessionCacheProvider(1, 1)
}

// testApp collects mounted filters and chains them behind a session filter.
type testApp struct {
	filters []common.RequestChainedHandler
}

func (app *testApp) Use(filter common.RequestChainedHandler) {
	app.filters = append(app.filters, filter)
}

func (app *testApp) handler(sessions sessionStore, final common.RequestHandler) http.Handler {
	sessionFilter := filters.CreateSessionFilter("session", "SESSION", sessions, 24, 1, "/", "")
	var head common.RequestChainedHandler = sessionFilter
	for _, filter := range app.filters {
		head.SetNext(filter)
		head = filter
	}
	head.SetNext(final)
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		sessionFilter.Handle(testLog(), writer, request)
	})
}

type recordingHandler struct {
	request *http.Request
}

func (handler *recordingHandler) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	handler.request = request
	writer.WriteHeader(200)
}

type stubStrategy struct {
	name         string
	calls        *[]string
	configureErr error
	fields       map[string]interface{}
	env          StrategyEnv
}

func (strategy *stubStrategy) Name() string {
	return strategy.name
}

func (strategy *stubStrategy) Configure(defaults Options) error {
	*strategy.calls = append(*strategy.calls, "configure:"+strategy.name)
	return strategy.configureErr
}

func (strategy *stubStrategy) RegisterRoutes(router *Router, authenticator Authenticator) error {
	*strategy.calls = append(*strategy.calls, "routes:"+strategy.name)
	return router.Get("/auth/"+strategy.name, authenticator.Authenticate(strategy.name))
}

func (strategy *stubStrategy) Init(env StrategyEnv) error {
	*strategy.calls = append(*strategy.calls, "init:"+strategy.name)
	strategy.env = env
	if strategy.fields != nil {
		env.UpdateClientSession(strategy.fields)
	}
	return nil
}

type countingBackend struct {
	calls int
	model model.Model
	err   error
}

func (backend *countingBackend) CreateModel() (model.Model, error) {
	backend.calls++
	if backend.err != nil {
		return nil, backend.err
	}
	return backend.model, nil
}

func newCountingBackend() *countingBackend {
	m, _ := model.NewMemoryBackend(1).CreateModel()
	return &countingBackend{model: m}
}

type failingModel struct{}

func (failingModel) FindUser(ctx context.Context, provider string, externalId string) (common.UserIdentifier, bool, error) {
	return "", false, errors.New("database is down")
}

func (failingModel) CreateUser(ctx context.Context, profile *common.ExternalProfile) (common.UserIdentifier, error) {
	return "", errors.New("database is down")
}

type stubProfile struct {
	Id      string `json:"id"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

func parseStubProfile(body []byte) (*RawProfile, error) {
	var profile stubProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, err
	}
	raw := &RawProfile{Id: profile.Id, DisplayName: "Stub " + profile.Id}
	if profile.Email != "" {
		raw.Emails = []ProfileValue{{Value: "old-" + profile.Email}, {Value: profile.Email}}
	}
	if profile.Picture != "" {
		raw.Photos = []ProfileValue{{Value: profile.Picture}}
	}
	return raw, nil
}

// newProviderStub serves the token and user info endpoints of a provider.
func newProviderStub(t *testing.T, profile *stubProfile) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(writer http.ResponseWriter, request *http.Request) {
		if err := request.ParseForm(); err != nil || request.PostForm.Get("code") != "good-code" {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(400)
			_, _ = writer.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer access-1" {
			writer.WriteHeader(401)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(profile)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func stubProviderStrategy(server *httptest.Server, overrides Options) *OAuthStrategy {
	return NewOAuthStrategy(ProviderSpec{
		Name:         "stub",
		Endpoint:     oauth2.Endpoint{AuthURL: server.URL + "/authorize", TokenURL: server.URL + "/token"},
		UserInfoUrl:  server.URL + "/userinfo",
		Scopes:       []string{"profile"},
		ParseProfile: parseStubProfile,
	}, overrides)
}

func contextWithSession(request *http.Request, current *common.Session) context.Context {
	return context.WithValue(request.Context(), common.SessionContextKey, current)
}
