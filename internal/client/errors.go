package client

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrAborted ends a request whose outcome must not be reported, such as a
// 401 that already triggered the redirect to login.
var ErrAborted = errors.New("request aborted")

// ProtocolError means the server answered with something other than
// the expected JSON document.
type ProtocolError struct {
	Status      int
	ContentType string
	Reason      string // "expected JSON" or "invalid JSON"
	Snippet     string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s, got: %s", e.Reason, e.Snippet)
}

// RequestError is a non-2xx response with a JSON body.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// IsAbort reports whether err is a benign stop: ErrAborted or a canceled
// context. Such errors are never shown to the user.
func IsAbort(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}

// UserMessage renders err as the single line shown to the user, or ""
// for nil and aborts.
func UserMessage(err error) string {
	if err == nil || IsAbort(err) {
		return ""
	}
	return err.Error()
}

const snippetLen = 200

func snippet(body []byte) string {
	if len(body) <= snippetLen {
		return string(body)
	}
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "…"
}
