package filters

import (
	"bytes"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/sirupsen/logrus"
	"net/http"
	templ "text/template"
)

type LogFilterHandler struct {
	next     *common.RequestHandler
	template *templ.Template
	Name     string
}

type logRecord struct {
	Request *http.Request
	Filter  *LogFilterHandler
	Session *common.Session
	User    common.UserIdentifier
}

func (filter *LogFilterHandler) SetNext(nextHandler common.RequestHandler) {
	filter.next = &nextHandler
}

func (filter *LogFilterHandler) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	log = log.WithField("filterName", filter.Name)

	record := logRecord{Request: request, Filter: filter}
	record.Session, _ = common.SessionFromContext(request.Context())
	record.User, _ = common.UserFromContext(request.Context())

	var tpl bytes.Buffer
	if err := filter.template.Execute(&tpl, record); err != nil {
		log.Warnf("Log filter template error: %v", err)
	} else {
		log.Info(tpl.String())
	}

	if filter.next != nil {
		(*filter.next).Handle(log, writer, request)
	} else {
		log.Debugf("Log filter: %v. Next handler is empty", filter.Name)
	}
}

// Factory

// CreateLogFilter returns nil when template can not be parsed; the filter is skipped then.
func CreateLogFilter(name string, template string) *LogFilterHandler {
	parse, err := templ.New(name).Parse(template)
	if err != nil {
		logrus.Warnf("Log filter template error: %v. Skip filter", err)
		return nil
	}
	return &LogFilterHandler{
		Name:     name,
		template: parse,
	}
}
