// Package auth applies archive.org credentials to outgoing requests. Public
// items need none; restricted items accept IA-S3 keys or session cookies.
package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Authenticator defines the interface for applying authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// Type represents the type of authentication.
type Type string

// Authentication types.
const (
	// LowAuthType is archive.org's IA-S3 "LOW access:secret" scheme.
	LowAuthType Type = "low"
	// CookieAuthType replays the logged-in-user/logged-in-sig session cookies.
	CookieAuthType Type = "cookie"
	// HeaderAuthType represents custom header-based authentication.
	HeaderAuthType Type = "header"
	// ChainAuthType applies several authenticators to the same request.
	ChainAuthType Type = "chain"
)

// LowAuth carries IA-S3 keys, as issued at https://archive.org/account/s3.php.
type LowAuth struct {
	AccessKey string
	SecretKey string
}

// Apply sets the Authorization header.
func (l LowAuth) Apply(req *http.Request) error {
	if l.AccessKey == "" || l.SecretKey == "" {
		return fmt.Errorf("ia-s3 credentials require both access and secret key")
	}
	req.Header.Set("Authorization", fmt.Sprintf("LOW %s:%s", l.AccessKey, l.SecretKey))
	return nil
}

// Type returns LowAuthType.
func (l LowAuth) Type() Type { return LowAuthType }

// CookieAuth carries an archive.org web session.
type CookieAuth struct {
	User      string
	Signature string
}

// Apply adds the session cookies.
func (c CookieAuth) Apply(req *http.Request) error {
	if c.User == "" || c.Signature == "" {
		return fmt.Errorf("cookie auth requires both user and signature")
	}
	req.AddCookie(&http.Cookie{Name: "logged-in-user", Value: c.User})
	req.AddCookie(&http.Cookie{Name: "logged-in-sig", Value: c.Signature})
	return nil
}

// Type returns CookieAuthType.
func (c CookieAuth) Type() Type { return CookieAuthType }

// HeaderAuth represents authentication via custom HTTP headers.
type HeaderAuth struct {
	Headers map[string]string
}

// Apply adds custom headers to the HTTP request. User-Agent and Accept are
// owned by the transport and cannot be overridden here.
func (h HeaderAuth) Apply(req *http.Request) error {
	for k, v := range h.Headers {
		switch strings.ToLower(k) {
		case "user-agent", "accept":
			continue
		}
		req.Header.Set(k, v)
	}
	return nil
}

// Type returns HeaderAuthType.
func (h HeaderAuth) Type() Type { return HeaderAuthType }

// FromKeys returns a LowAuth for non-empty keys and nil otherwise.
func FromKeys(accessKey, secretKey string) Authenticator {
	if accessKey == "" && secretKey == "" {
		return nil
	}
	return LowAuth{AccessKey: accessKey, SecretKey: secretKey}
}

// FromCookies returns a CookieAuth for a non-empty session and nil otherwise.
func FromCookies(user, signature string) Authenticator {
	if user == "" && signature == "" {
		return nil
	}
	return CookieAuth{User: user, Signature: signature}
}

// FromHeaders returns a HeaderAuth for a non-empty header set and nil otherwise.
func FromHeaders(headers map[string]string) Authenticator {
	if len(headers) == 0 {
		return nil
	}
	return HeaderAuth{Headers: headers}
}

// Chain applies each authenticator in order and stops at the first error.
type Chain []Authenticator

// Apply runs every authenticator of the chain.
func (c Chain) Apply(req *http.Request) error {
	for _, a := range c {
		if err := a.Apply(req); err != nil {
			return fmt.Errorf("%s auth: %w", a.Type(), err)
		}
	}
	return nil
}

// Type returns ChainAuthType.
func (c Chain) Type() Type { return ChainAuthType }

// Combine drops nil authenticators. It returns nil when none are left and
// the single survivor when only one is.
func Combine(as ...Authenticator) Authenticator {
	var chain Chain
	for _, a := range as {
		if a != nil {
			chain = append(chain, a)
		}
	}
	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	}
	return chain
}
