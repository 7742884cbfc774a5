package proxy

import (
	"github.com/sirupsen/logrus"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// ReverseProxyHandler is the terminal handler of a protected route.
type ReverseProxyHandler struct {
	TargetAddress url.URL
	proxy         *httputil.ReverseProxy
}

func NewReverseProxyHandler(targetUrl string) (*ReverseProxyHandler, error) {
	target, err := url.Parse(targetUrl)
	if err != nil {
		return nil, err
	}
	handler := &ReverseProxyHandler{TargetAddress: *target}
	handler.proxy = newProxy(&handler.TargetAddress)
	return handler, nil
}

func newProxy(target *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(writer http.ResponseWriter, request *http.Request, err error) {
		logrus.WithField("target", target.String()).Errorf("Proxying request %v error. Reason: %v", request.URL.Path, err)
		writer.WriteHeader(http.StatusBadGateway)
	}
	return proxy
}

func (router *ReverseProxyHandler) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	proxy := router.proxy
	if proxy == nil {
		proxy = newProxy(&router.TargetAddress)
	}
	log.Tracef("Proxying request %v to %v", request.URL.Path, router.TargetAddress.String())
	proxy.ServeHTTP(writer, request)
}
