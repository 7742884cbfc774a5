package auth

import (
	"github.com/Alcereo/passgate/pkg/common"
	log "github.com/sirupsen/logrus"
	"net/http"
)

type userAuthenticationFilter struct {
	next             *common.RequestHandler
	Name             string
	userDataRequired bool
}

// NewUserAuthenticationFilter guards a route with the user logged in by the
// auth module. Without a user the request is answered 401 when required.
func NewUserAuthenticationFilter(name string, userDataRequired bool) *userAuthenticationFilter {
	return &userAuthenticationFilter{
		next:             nil,
		Name:             name,
		userDataRequired: userDataRequired,
	}
}

func (filter *userAuthenticationFilter) Handle(log *log.Entry, writer http.ResponseWriter, request *http.Request) {
	log = log.WithField("filterName", filter.Name)
	user, found := common.UserFromContext(request.Context())
	if !found {
		log.Debugf("User is not logged in for the session")
		if filter.userDataRequired {
			writer.WriteHeader(401)
			return
		}
	} else {
		log.Debugf("Found user in request context. Id: %v", user)
	}
	if filter.next != nil {
		(*filter.next).Handle(log, writer, request)
	} else {
		log.Debugf("User authentication filter: %v doesn't have next handler", filter.Name)
	}
}

func (filter *userAuthenticationFilter) SetNext(handler common.RequestHandler) {
	filter.next = &handler
}
