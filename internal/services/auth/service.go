// Package auth implements the single shared-credential login gate.
//
// There is one configured email/password pair and one fixed session
// token. The token carries no identity and never expires; rotating it
// means redeploying with different configuration.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// SessionToken is issued on every successful login and is the only
// bearer value the gate accepts.
const SessionToken = "authenticated"

// ErrMissingCredentials means the request omitted email or password.
var ErrMissingCredentials = errors.New("email and password are required")

// ConfigurationError means the server has no credential pair to compare
// against.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "server configuration error: missing " + strings.Join(e.Missing, ", ")
}

// AuthError means the supplied credentials do not match.
type AuthError struct{}

func (e *AuthError) Error() string {
	return "invalid email or password"
}

type AuthService struct {
	email    string
	password string
}

func NewAuthService(email, password string) *AuthService {
	return &AuthService{email: email, password: password}
}

// Login checks the credentials and returns the session token. Email is
// compared case-insensitively, password exactly.
func (s *AuthService) Login(email, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", ErrMissingCredentials
	}

	var missing []string
	if s.email == "" {
		missing = append(missing, "EMAIL")
	}
	if s.password == "" {
		missing = append(missing, "PASSWORD")
	}
	if len(missing) > 0 {
		return "", &ConfigurationError{Missing: missing}
	}

	emailOK := strings.EqualFold(strings.TrimSpace(email), s.email)
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !emailOK || !passwordOK {
		return "", &AuthError{}
	}
	return SessionToken, nil
}

// ValidToken reports whether token is exactly the session token.
func ValidToken(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(SessionToken)) == 1
}
