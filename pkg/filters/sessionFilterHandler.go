package filters

import (
	"context"
	"fmt"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/sirupsen/logrus"
	"net/http"
	"time"
)

type SessionCachePort interface {
	PutSession(session *common.Session) error
	GetSession(cookie common.SessionCookie) (*common.Session, bool)
	RemoveSession(session *common.Session)
	CreateNewIdentifier() common.SessionId
	CreateNewCookie() common.SessionCookie
}

type SessionFilterHandler struct {
	Name                   string
	next                   *common.RequestHandler
	SessionCookieName      string
	SessionCache           SessionCachePort
	CookieTTLHours         int
	RenewCookieBeforeHours int
	CookiePath             string
	CookieDomain           string
}

func CreateSessionFilter(
	name string,
	cookieName string,
	provider SessionCachePort,
	cookieTTLHours int,
	renewCookieBeforeHours int,
	cookiePath string,
	cookieDomain string,
) *SessionFilterHandler {
	return &SessionFilterHandler{
		Name:                   name,
		SessionCookieName:      cookieName,
		SessionCache:           provider,
		next:                   nil,
		CookieTTLHours:         cookieTTLHours,
		RenewCookieBeforeHours: renewCookieBeforeHours,
		CookieDomain:           cookieDomain,
		CookiePath:             cookiePath,
	}
}

func (filter *SessionFilterHandler) SetNext(nextHandler common.RequestHandler) {
	filter.next = &nextHandler
}

func (filter *SessionFilterHandler) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	const stage = "Session filter error. Reason: %v"
	log = log.WithField("filterName", filter.Name)

	session, err := filter.getOrCreateSession(log, writer, request)
	if err != nil {
		log.Errorf(stage, err)
		writer.WriteHeader(500)
		return
	}

	log.Debugf("Retrieved session: %v", session.Id)
	newContext := context.WithValue(request.Context(), common.SessionContextKey, session)
	newRequest := request.WithContext(newContext)

	if filter.next != nil {
		(*filter.next).Handle(log.WithField("sessionId", session.Id), writer, newRequest)
	} else {
		log.Debugf("Session filter: %v. Next handler is empty", filter.Name)
	}
}

func (filter *SessionFilterHandler) getOrCreateSession(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) (*common.Session, error) {
	cookie, err := request.Cookie(filter.SessionCookieName)
	if err != nil || cookie == nil {
		log.Tracef("Cookie was not found in the request context. Creating new Session")
		return filter.createNewSession(writer, nil)
	}

	log.Tracef("Found cookie in the request context: %v", cookie.Value)
	session, found := filter.SessionCache.GetSession(common.SessionCookie(cookie.Value))
	if !found || session == nil {
		log.Warnf("Session was not found in the cache. Creating new session.")
		return filter.createNewSession(writer, nil)
	}

	renewAfter := time.Now().Add(time.Hour * time.Duration(filter.RenewCookieBeforeHours))
	if !session.Expires.Before(renewAfter) {
		log.Tracef("Session is valid")
		return session, nil
	}

	log.Tracef("Session is about to expire. Renewing cookie.")
	newSession, err := filter.createNewSession(writer, session)
	if err != nil {
		return nil, err
	}
	filter.SessionCache.RemoveSession(session)
	return newSession, nil
}

// createNewSession keeps the identifier of oldSession, so data scoped by
// session id survives cookie renewal.
func (filter *SessionFilterHandler) createNewSession(writer http.ResponseWriter, oldSession *common.Session) (*common.Session, error) {
	var id common.SessionId
	if oldSession == nil {
		id = filter.SessionCache.CreateNewIdentifier()
	} else {
		id = oldSession.Id
	}

	expires := time.Now().Add(time.Hour * time.Duration(filter.CookieTTLHours))
	session := &common.Session{
		Cookie:  filter.SessionCache.CreateNewCookie(),
		Id:      id,
		Expires: expires,
	}

	if err := filter.SessionCache.PutSession(session); err != nil {
		return nil, fmt.Errorf("storing session error: %v", err)
	}

	newCookie := http.Cookie{
		Name:     filter.SessionCookieName,
		Value:    string(session.Cookie),
		Expires:  expires,
		Path:     filter.CookiePath,
		Domain:   filter.CookieDomain,
		HttpOnly: true,
	}
	http.SetCookie(writer, &newCookie)

	return session, nil
}
