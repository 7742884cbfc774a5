package auth

import (
	"fmt"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/sirupsen/logrus"
	"net/http"
)

// Router accumulates the auth routes of all strategies. Mounted as a filter,
// it serves matching requests and passes the rest down the chain.
type Router struct {
	next   *common.RequestHandler
	routes map[string]common.RequestHandler
	order  []string
}

func NewRouter() *Router {
	return &Router{
		routes: make(map[string]common.RequestHandler),
	}
}

func routeKey(method string, path string) string {
	return method + " " + path
}

func (router *Router) Route(method string, path string, handler common.RequestHandler) error {
	key := routeKey(method, path)
	if _, found := router.routes[key]; found {
		return fmt.Errorf("auth route already registered: %v", key)
	}
	router.routes[key] = handler
	router.order = append(router.order, key)
	return nil
}

func (router *Router) Get(path string, handler common.RequestHandler) error {
	return router.Route(http.MethodGet, path, handler)
}

// Routes lists registered routes in registration order.
func (router *Router) Routes() []string {
	return append([]string(nil), router.order...)
}

func (router *Router) SetNext(handler common.RequestHandler) {
	router.next = &handler
}

func (router *Router) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	key := routeKey(request.Method, request.URL.Path)
	if handler, found := router.routes[key]; found {
		handler.Handle(log.WithField("route", key), writer, request)
		return
	}
	if router.next != nil {
		(*router.next).Handle(log, writer, request)
	} else {
		log.Debugf("Auth router doesn't have next handler. Route not found: %v", key)
		writer.WriteHeader(404)
	}
}
