package application

import (
	"context"
	"strings"
)

// StaticAuthorizer grants administrator rights to a fixed list of emails.
type StaticAuthorizer struct {
	admins map[string]struct{}
}

// NewStaticAuthorizer builds an authorizer from the administrator emails.
func NewStaticAuthorizer(admins []string) *StaticAuthorizer {
	set := make(map[string]struct{}, len(admins))
	for _, email := range admins {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			set[email] = struct{}{}
		}
	}
	return &StaticAuthorizer{admins: set}
}

// IsPrivileged reports whether email belongs to an administrator.
func (a *StaticAuthorizer) IsPrivileged(_ context.Context, email string) bool {
	if a == nil {
		return false
	}
	_, ok := a.admins[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Principal resolves the acting principal for email.
func (a *StaticAuthorizer) Principal(ctx context.Context, email string) Principal {
	email = strings.TrimSpace(email)
	return Principal{Email: email, IsAdmin: a.IsPrivileged(ctx, email)}
}
