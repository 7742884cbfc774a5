package filters

import (
	"errors"
	"fmt"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/Alcereo/passgate/pkg/crypt"
	"github.com/sirupsen/logrus"
	"gopkg.in/go-playground/validator.v9"
	"net/http"
	"strings"
)

var (
	ErrCsrfHeaderMissing = errors.New("CSRF header is empty")
	ErrCsrfTokenInvalid  = errors.New("invalid CSRF token")
)

type methodsSet map[string]bool

func newMethodsSet(methods []string) methodsSet {
	set := make(methodsSet, len(methods))
	for _, method := range methods {
		set[strings.ToUpper(method)] = true
	}
	return set
}

func (set methodsSet) Contains(method string) bool {
	return set[method]
}

// CsrfFilter hands out a token on safe methods and requires it back in the
// same header on the others. A token is bound to the session and to the
// logged in user, so logging in or out invalidates it.
type CsrfFilter struct {
	next        *common.RequestHandler
	Name        string           `validate:"required"`
	HeaderName  string           `validate:"required"`
	SafeMethods methodsSet       `validate:"required,min=1"`
	Encryptor   *crypt.Encryptor `validate:"required"`
}

var validate = validator.New()

func NewCsrfFilter(name string, headerName string, safeMethods []string, encryptorPrivateKey string) (*CsrfFilter, error) {
	encryptor, err := crypt.NewEncryptor(encryptorPrivateKey)
	if err != nil {
		return nil, err
	}
	filter := &CsrfFilter{
		Name:        name,
		HeaderName:  headerName,
		SafeMethods: newMethodsSet(safeMethods),
		Encryptor:   encryptor,
	}
	if err := validate.Struct(filter); err != nil {
		return nil, fmt.Errorf("CSRF filter %v configuration error: %v", name, err)
	}
	return filter, nil
}

func (filter *CsrfFilter) SetNext(nextHandler common.RequestHandler) {
	filter.next = &nextHandler
}

func (filter *CsrfFilter) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	const stage = "Csrf filter error. Reason: %v"
	log = log.WithField("filterName", filter.Name)

	session, found := common.SessionFromContext(request.Context())
	if !found {
		log.Errorf(stage, "session not found. Session filter is required before CSRF filter")
		writer.WriteHeader(500)
		return
	}
	fact := csrfFact(request, session)

	if filter.SafeMethods.Contains(request.Method) {
		token, err := filter.Encryptor.EncryptFact(fact)
		if err != nil {
			log.Errorf(stage, err)
			writer.WriteHeader(500)
			return
		}
		writer.Header().Set(filter.HeaderName, token)
	} else if err := filter.checkToken(request.Header.Get(filter.HeaderName), fact); err != nil {
		log.Debugf(stage, err)
		writer.WriteHeader(403)
		_, _ = fmt.Fprint(writer, err.Error())
		return
	}

	if filter.next != nil {
		(*filter.next).Handle(log, writer, request)
	} else {
		log.Debugf("Csrf filter: %v. Next handler is empty", filter.Name)
	}
}

func (filter *CsrfFilter) checkToken(token string, fact string) error {
	if token == "" {
		return ErrCsrfHeaderMissing
	}
	value, err := filter.Encryptor.DecryptFact(token)
	if err != nil || value != fact {
		return ErrCsrfTokenInvalid
	}
	return nil
}

func csrfFact(request *http.Request, session *common.Session) string {
	user, _ := common.UserFromContext(request.Context())
	return string(session.Id) + ":" + string(user)
}
