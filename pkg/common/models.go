package common

import (
	"context"
	"time"
)

// Session

const SessionContextKey string = "SessionContextKey"

type Session struct {
	Id      SessionId
	Cookie  SessionCookie
	Expires time.Time
}

type SessionId string
type SessionCookie string

// SessionFromContext returns the session put to the context by the session filter.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(SessionContextKey).(*Session)
	return session, ok && session != nil
}

// User

const UserIdentifierContextKey string = "UserIdentifierContextKey"

// UserIdentifier is an opaque stable key of a local user record.
type UserIdentifier string

// UserFromContext returns the authenticated user put to the context by the auth module.
func UserFromContext(ctx context.Context) (UserIdentifier, bool) {
	user, ok := ctx.Value(UserIdentifierContextKey).(UserIdentifier)
	return user, ok && user != ""
}

type ProfileName struct {
	GivenName  string
	FamilyName string
}

// ExternalProfile is a provider profile normalized for one login attempt.
type ExternalProfile struct {
	Provider    string
	Id          string
	Name        ProfileName
	DisplayName string
	Email       string
	Picture     string
}
