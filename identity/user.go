package identity

import (
	"context"
	"net/http"
	"strings"
)

// AnonymousEmail is reported for requests that do not carry the trusted
// user id header.
const AnonymousEmail = "anonymous@kubeflow.org"

// User is the caller of a single request. It is never persisted.
type User struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Domain   string `json:"domain"`
	HasAuth  bool   `json:"hasAuth"`
	// Auth holds the trusted header exactly as it was received so it can
	// be forwarded to the profile controller.
	Auth map[string]string `json:"auth,omitempty"`
}

// Header returns the Auth headers as an http.Header.
func (u User) Header() http.Header {
	h := make(http.Header, len(u.Auth))
	for key, value := range u.Auth {
		h.Set(key, value)
	}
	return h
}

// FromRequest derives the caller from the trusted header. The prefix is
// stripped from the header value when present.
func FromRequest(r *http.Request, header, prefix string) User {
	email := AnonymousEmail
	var auth map[string]string
	if header != "" {
		if value := r.Header.Get(header); value != "" {
			email = strings.TrimPrefix(value, prefix)
			auth = map[string]string{header: value}
		}
	}
	username, domain, _ := strings.Cut(email, "@")
	return User{
		Email:    email,
		Username: username,
		Domain:   domain,
		HasAuth:  auth != nil,
		Auth:     auth,
	}
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying user.
func NewContext(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// FromContext returns the user stored by NewContext. Requests that never
// went through the middleware are treated as anonymous.
func FromContext(ctx context.Context) User {
	if user, ok := ctx.Value(contextKey{}).(User); ok {
		return user
	}
	username, domain, _ := strings.Cut(AnonymousEmail, "@")
	return User{Email: AnonymousEmail, Username: username, Domain: domain}
}
