package auth

import (
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/Alcereo/passgate/pkg/session"
	"github.com/sirupsen/logrus"
	"net/http"
)

// sessionAugmentFilter merges its fields into the client session scope on
// every request.
type sessionAugmentFilter struct {
	next   *common.RequestHandler
	scopes session.ScopePort
	fields map[string]interface{}
}

func newSessionAugmentFilter(scopes session.ScopePort, fields map[string]interface{}) *sessionAugmentFilter {
	copied := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return &sessionAugmentFilter{
		scopes: scopes,
		fields: copied,
	}
}

func (filter *sessionAugmentFilter) SetNext(handler common.RequestHandler) {
	filter.next = &handler
}

func (filter *sessionAugmentFilter) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	scope, err := session.FromRequest(filter.scopes, request, session.AuthScope)
	if err != nil {
		log.Warnf("Client session augmentation skipped. Reason: %v", err)
	} else if err := scope.Merge(filter.fields); err != nil {
		log.Errorf("Client session augmentation error. Reason: %v", err)
	}

	if filter.next != nil {
		(*filter.next).Handle(log, writer, request)
	} else {
		log.Debugf("Client session augmentation filter doesn't have next handler")
	}
}
