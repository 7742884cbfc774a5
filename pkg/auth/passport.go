package auth

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/Alcereo/passgate/pkg/session"
	"github.com/sirupsen/logrus"
	"net/http"
	"strings"
)

const userKey = "user"

var errStateMismatch = errors.New("oauth state does not match the session")

// passportFilter puts the logged in user of the session to the request context.
type passportFilter struct {
	next   *common.RequestHandler
	module *Module
}

func (filter *passportFilter) SetNext(handler common.RequestHandler) {
	filter.next = &handler
}

func (filter *passportFilter) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	if user, found := filter.module.currentUser(log, request); found {
		log = log.WithField("userId", user)
		request = request.WithContext(context.WithValue(request.Context(), common.UserIdentifierContextKey, user))
	}
	if filter.next != nil {
		(*filter.next).Handle(log, writer, request)
	} else {
		log.Debugf("Passport filter doesn't have next handler")
	}
}

func (module *Module) currentUser(log *logrus.Entry, request *http.Request) (common.UserIdentifier, bool) {
	scope, err := session.FromRequest(module.sessions, request, session.PassportScope)
	if err != nil {
		return "", false
	}
	value, found := scope.Get()[userKey]
	if !found {
		return "", false
	}
	user, err := module.deserializeUser(value)
	if err != nil || user == "" {
		log.Warnf("Deserializing session user error. Reason: %v", err)
		return "", false
	}
	return user, true
}

func (module *Module) login(request *http.Request, user common.UserIdentifier) error {
	scope, err := session.FromRequest(module.sessions, request, session.PassportScope)
	if err != nil {
		return err
	}
	value, err := module.serializeUser(user)
	if err != nil {
		return err
	}
	return scope.Merge(map[string]interface{}{userKey: value})
}

func (module *Module) flow(name string) (*OAuth2Flow, bool) {
	flow, found := module.flows[name]
	return flow, found
}

func (module *Module) Authenticate(strategy string) common.RequestHandler {
	return common.RequestHandlerFunc(func(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
		log = log.WithField("strategy", strategy)

		currentSession, found := common.SessionFromContext(request.Context())
		if !found {
			log.Errorf("Starting login error. Reason: %v", session.ErrNoSession)
			writer.WriteHeader(500)
			return
		}
		flow, found := module.flow(strategy)
		if !found {
			log.Errorf("Starting login error. Reason: strategy is not initialized")
			writer.WriteHeader(404)
			return
		}

		state, err := module.encryptor.EncryptFact(stateFact(strategy, currentSession))
		if err != nil {
			log.Errorf("Starting login error. Reason: %v", err)
			writer.WriteHeader(500)
			return
		}

		log.Debugf("Redirecting to %v authorization", strategy)
		http.Redirect(writer, request, flow.AuthCodeURL(request, state), http.StatusFound)
	})
}

func (module *Module) Callback(strategy string) common.RequestHandler {
	return common.RequestHandlerFunc(func(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
		log = log.WithField("strategy", strategy)

		flow, found := module.flow(strategy)
		if !found {
			log.Errorf("Login callback error. Reason: strategy is not initialized")
			writer.WriteHeader(404)
			return
		}

		user, err := module.completeLogin(request, strategy, flow)
		module.metrics.LoginFinished(strategy, err)
		if err != nil {
			log.Warnf("Login failed. Reason: %v", err)
			module.fail(writer, request, flow)
			return
		}

		log.WithField("userId", user).Infof("User logged in")
		target := flow.SuccessRedirect()
		if target == "" {
			target = "/"
		}
		http.Redirect(writer, request, target, http.StatusFound)
	})
}

func (module *Module) completeLogin(request *http.Request, strategy string, flow *OAuth2Flow) (common.UserIdentifier, error) {
	currentSession, found := common.SessionFromContext(request.Context())
	if !found {
		return "", session.ErrNoSession
	}
	if err := module.checkState(request.URL.Query().Get("state"), strategy, currentSession); err != nil {
		return "", err
	}
	user, err := flow.Complete(request.Context(), request)
	if err != nil {
		return "", err
	}
	if err := module.login(request, user); err != nil {
		return "", err
	}
	return user, nil
}

func (module *Module) checkState(state string, strategy string, currentSession *common.Session) error {
	if state == "" {
		return errStateMismatch
	}
	fact, err := module.encryptor.DecryptFact(state)
	if err != nil {
		return errStateMismatch
	}
	if fact != stateFact(strategy, currentSession) {
		return errStateMismatch
	}
	return nil
}

func stateFact(strategy string, currentSession *common.Session) string {
	return strings.Join([]string{strategy, string(currentSession.Id)}, ":")
}

func (module *Module) fail(writer http.ResponseWriter, request *http.Request, flow *OAuth2Flow) {
	if target := flow.FailureRedirect(); target != "" {
		http.Redirect(writer, request, target, http.StatusFound)
		return
	}
	writer.WriteHeader(401)
}

func (module *Module) handleLogout(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	scope, err := session.FromRequest(module.sessions, request, session.PassportScope)
	if err != nil {
		log.Errorf("Logout error. Reason: %v", err)
		writer.WriteHeader(500)
		return
	}
	if err := scope.Del(userKey); err != nil {
		log.Errorf("Logout error. Reason: %v", err)
		writer.WriteHeader(500)
		return
	}
	log.Debugf("User logged out")
	http.Redirect(writer, request, module.logoutRedirect, http.StatusFound)
}

type clientSession struct {
	Auth   map[string]interface{} `json:"auth"`
	UserId *string                `json:"userId"`
}

func (module *Module) handleSession(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	scope, err := session.FromRequest(module.sessions, request, session.AuthScope)
	if err != nil {
		log.Errorf("Reading client session error. Reason: %v", err)
		writer.WriteHeader(500)
		return
	}

	response := clientSession{Auth: scope.Get()}
	if user, found := common.UserFromContext(request.Context()); found {
		id := string(user)
		response.UserId = &id
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(200)
	if err := json.NewEncoder(writer).Encode(response); err != nil {
		log.Errorf("Writing client session error. Reason: %v", err)
	}
}
