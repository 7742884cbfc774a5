package auth

import (
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/Alcereo/passgate/pkg/session"
	log "github.com/sirupsen/logrus"
	"net/http"
)

type UserDataSerializer interface {
	Serialize(user common.UserIdentifier, clientSession map[string]interface{}) (string, error)
}

type userDataSenderFilter struct {
	next               *common.RequestHandler
	sessions           session.ScopePort
	Name               string
	userDataSerializer UserDataSerializer
	userDataHeader     string
}

// NewUserDataSenderFilter passes the logged in user and the client session to
// the upstream in a serialized header.
func NewUserDataSenderFilter(
	sessions session.ScopePort,
	name string,
	userDataSerializer UserDataSerializer,
	userDataHeader string,
) *userDataSenderFilter {
	return &userDataSenderFilter{
		next:               nil,
		sessions:           sessions,
		Name:               name,
		userDataSerializer: userDataSerializer,
		userDataHeader:     userDataHeader,
	}
}

func (filter *userDataSenderFilter) SetNext(handler common.RequestHandler) {
	filter.next = &handler
}

func (filter *userDataSenderFilter) Handle(log *log.Entry, writer http.ResponseWriter, request *http.Request) {
	log = log.WithField("filterName", filter.Name)
	request.Header.Del(filter.userDataHeader)
	enchantedRequest := filter.updateRequest(log, request)
	if filter.next != nil {
		(*filter.next).Handle(log, writer, enchantedRequest)
	} else {
		log.Debugf("User data sender filter: %v doesn't have next handler", filter.Name)
	}
}

func (filter *userDataSenderFilter) updateRequest(log *log.Entry, request *http.Request) *http.Request {
	user, found := common.UserFromContext(request.Context())
	if !found {
		log.Debugf("User not found in the request context. Skip user data sending.")
		return request
	}

	clientSession := map[string]interface{}{}
	if scope, err := session.FromRequest(filter.sessions, request, session.AuthScope); err != nil {
		log.Warnf("Client session is not available. Reason: %v", err)
	} else {
		clientSession = scope.Get()
	}

	token, err := filter.userDataSerializer.Serialize(user, clientSession)
	if err != nil {
		log.Errorf("User data serializing error. Skip user data sending. %+v", err)
		return request
	}

	request.Header.Set(filter.userDataHeader, token)
	return request
}
