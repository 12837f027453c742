// Package auth checks the public key an SDK sends with each ingest request.
//
// It only compares keys; where they come from is left to the caller.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized   = errors.New("auth: unauthorized")
	ErrUnknownProject = errors.New("auth: unknown project")
)

const HeaderSentryAuth = "X-Sentry-Auth"

// Validator validates the key sent for a project.
type Validator interface {
	Validate(project, key string) error
}

// StaticToken accepts one shared key for every project.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(_ string, key string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if !constantTimeEqual(s.Token, key) {
		return ErrUnauthorized
	}
	return nil
}

// ProjectKeys maps project ids to keys. An empty key accepts any client
// for that project.
type ProjectKeys map[string]string

func (p ProjectKeys) Validate(project, key string) error {
	want, ok := p[project]
	if !ok {
		return ErrUnknownProject
	}
	if want == "" {
		return nil
	}
	if !constantTimeEqual(want, key) {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(project, key string) error

func (f FuncValidator) Validate(project, key string) error {
	return f(project, key)
}

// ParseSentryAuth reads the comma separated key=value pairs of an
// X-Sentry-Auth header, dropping the leading "Sentry " scheme.
func ParseSentryAuth(header string) map[string]string {
	out := make(map[string]string)
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "sentry") {
		header = rest
	}
	for _, pair := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// RequestKey returns the sentry_key of r, preferring the auth header over
// the query string.
func RequestKey(r *http.Request) string {
	if key := ParseSentryAuth(r.Header.Get(HeaderSentryAuth))["sentry_key"]; key != "" {
		return key
	}
	return r.URL.Query().Get("sentry_key")
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
