package mmapi

import (
	"errors"
	"fmt"
)

// ErrMissingAuthToken is returned when a call needs a bearer token and the
// session holds none. Password sessions must call StoreSessionToken first.
var ErrMissingAuthToken = errors.New(ErrMsgMissingAuthToken)

// ErrMissingCredentials is returned when Credentials were not built with
// PasswordCredentials or TokenCredentials.
var ErrMissingCredentials = errors.New(ErrMsgMissingCredentials)

// ErrMissingHandler is returned when an event channel is built without an
// EventHandler.
var ErrMissingHandler = errors.New(ErrMsgMissingHandler)

// ErrChannelAlreadyUsed is returned when Run is called a second time on the
// same event channel.
var ErrChannelAlreadyUsed = errors.New(ErrMsgChannelAlreadyUsed)

// Kind classifies an *Error.
type Kind int

const (
	// KindConfig is a malformed instance URL.
	KindConfig Kind = iota + 1
	// KindTransport is a failure of the underlying HTTP transport.
	KindTransport
	// KindHeader is a header value that cannot be put on the wire.
	KindHeader
	// KindMethod is an invalid HTTP method string.
	KindMethod
	// KindSerialization is malformed JSON in a request or response body.
	KindSerialization
	// KindWebSocket is a failure of the websocket transport.
	KindWebSocket
)

// String returns the kind's message.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return ErrMsgInvalidInstanceURL
	case KindTransport:
		return ErrMsgRequestFailed
	case KindHeader:
		return ErrMsgInvalidHeader
	case KindMethod:
		return ErrMsgInvalidMethod
	case KindSerialization:
		return ErrMsgJSONProcessing
	case KindWebSocket:
		return ErrMsgWebsocket
	default:
		return "unknown error"
	}
}

// Error is a classified local failure: the request never produced a usable
// response, or the websocket transport broke.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "GET teams" or "dial".
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("mmapi: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("mmapi: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// TokenError is returned by StoreSessionToken when the login response has no
// Token header.
type TokenError struct {
	StatusCode int
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("mmapi: %s, response code %d", ErrMsgCouldNotGetToken, e.StatusCode)
}

// APIError is the structured error body returned by the server with a non-2xx
// status.
type APIError struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
	StatusCode int    `json:"status_code"`
	IsOAuth    bool   `json:"is_oauth"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mmapi: API returned error %d (%s): %s", e.StatusCode, e.ID, e.Message)
}

// StatusError is returned for a non-2xx response whose body is not an APIError.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mmapi: %s: %d", ErrMsgNonStandardStatus, e.StatusCode)
}
