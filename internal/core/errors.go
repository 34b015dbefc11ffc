package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"nara.app/nara-gateway/internal/dust"
)

// Kind classifies service failures for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindNotFound
	KindUpstream
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindUnavailable:
		return "unavailable"
	}
	return "internal"
}

// Error is the error type returned by every service in this package.
// Status, when non-zero, overrides the default HTTP status of the kind.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus is the status the error should be answered with.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func InvalidRequest(msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unavailable(msg string) *Error {
	return &Error{Kind: KindUnavailable, Message: msg}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// Upstream builds an upstream failure. Statuses below 400 are reported as
// 502.
func Upstream(status int, msg string, details any, err error) *Error {
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	return &Error{Kind: KindUpstream, Status: status, Message: msg, Details: details, Err: err}
}

// AsError returns err as an *Error, classifying agent platform and context
// failures on the way. Anything else is internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}

	var apiErr *dust.APIError
	if errors.As(err, &apiErr) {
		var details any
		if len(apiErr.Body) > 0 {
			details = apiErr.Body
		} else if apiErr.Raw != "" {
			details = apiErr.Raw
		}
		return Upstream(apiErr.StatusCode, apiErr.Message, details, err)
	}

	var streamErr *dust.StreamError
	if errors.As(err, &streamErr) {
		return Upstream(http.StatusBadGateway, streamErr.Message, nil, err)
	}

	switch {
	case errors.Is(err, dust.ErrInvalidResponse):
		return Upstream(http.StatusBadGateway, dust.ErrInvalidResponse.Error(), nil, err)
	case errors.Is(err, dust.ErrNoAgentResponse):
		return Upstream(http.StatusBadGateway, dust.ErrNoAgentResponse.Error(), nil, err)
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindUpstream, Status: http.StatusGatewayTimeout, Message: "agent platform timed out", Err: err}
	}
	return Internal("internal error", err)
}
