package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/workos-client/pkg/ratelimit"
)

// Sentinel errors matched by the typed errors through errors.Is.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrOAuth               = errors.New("oauth error")
	ErrServer              = errors.New("server error")
)

// FieldError is a single validation failure reported by the API.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// APIError holds what every error response carries.
type APIError struct {
	Status    int
	RequestID string
	Code      string
	Message   string
	RawBody   []byte
}

// StatusCode returns the HTTP status of the response.
func (e *APIError) StatusCode() int {
	return e.Status
}

func (e *APIError) format(kind string) string {
	msg := fmt.Sprintf("workos %s (status %d): %s", kind, e.Status, e.Message)
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.RequestID != "" {
		msg += ", request_id " + e.RequestID
	}
	return msg
}

// BadRequestError is returned for 400 responses.
type BadRequestError struct {
	APIError
	Errors []FieldError
}

func (e *BadRequestError) Error() string        { return e.format("bad request") }
func (e *BadRequestError) Is(target error) bool { return target == ErrBadRequest }

// UnauthorizedError is returned for 401 responses whatever the body looks like.
type UnauthorizedError struct {
	APIError
}

func (e *UnauthorizedError) Error() string        { return e.format("unauthorized") }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// NotFoundError is returned for 404 responses.
type NotFoundError struct {
	APIError
	Path string
}

func (e *NotFoundError) Error() string        { return e.format("not found") }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError is returned for 409 responses.
type ConflictError struct {
	APIError
}

func (e *ConflictError) Error() string        { return e.format("conflict") }
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// UnprocessableEntityError is returned for 422 responses.
type UnprocessableEntityError struct {
	APIError
	Errors []FieldError
}

func (e *UnprocessableEntityError) Error() string {
	return e.format("unprocessable entity")
}
func (e *UnprocessableEntityError) Is(target error) bool { return target == ErrUnprocessableEntity }

// RateLimitExceededError is returned for 429 responses.
type RateLimitExceededError struct {
	APIError
	// RetryAfter is parsed from the Retry-After header; zero when absent.
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string        { return e.format("rate limit exceeded") }
func (e *RateLimitExceededError) Is(target error) bool { return target == ErrRateLimitExceeded }

// OAuthError is returned when an OAuth endpoint answers with
// error/error_description.
type OAuthError struct {
	APIError
	Description string
}

func (e *OAuthError) Error() string        { return e.format("oauth error") }
func (e *OAuthError) Is(target error) bool { return target == ErrOAuth }

// GenericServerError is returned for 5xx and any status without a
// dedicated type.
type GenericServerError struct {
	APIError
}

func (e *GenericServerError) Error() string        { return e.format("server error") }
func (e *GenericServerError) Is(target error) bool { return target == ErrServer }

type errorBody struct {
	Code             string       `json:"code"`
	Message          string       `json:"message"`
	Errors           []FieldError `json:"errors"`
	Error            string       `json:"error"`
	ErrorDescription string       `json:"error_description"`
}

// newResponseError maps a non-2xx response onto the error taxonomy.
func newResponseError(path string, resp *http.Response, body []byte) error {
	var parsed errorBody
	// Bodies are not guaranteed to be JSON.
	_ = json.Unmarshal(body, &parsed)

	base := APIError{
		Status:    resp.StatusCode,
		RequestID: resp.Header.Get("X-Request-ID"),
		Code:      parsed.Code,
		Message:   parsed.Message,
		RawBody:   body,
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		base.Message = "Could not authorize the request. Maybe your API key is invalid?"
		return &UnauthorizedError{APIError: base}

	case http.StatusNotFound:
		base.Message = fmt.Sprintf("The requested path '%s' could not be found.", path)
		return &NotFoundError{APIError: base, Path: path}

	case http.StatusUnprocessableEntity:
		base.Message = unprocessableMessage(parsed)
		return &UnprocessableEntityError{APIError: base, Errors: parsed.Errors}

	case http.StatusTooManyRequests:
		if base.Message == "" {
			base.Message = "Too many requests"
		}
		return &RateLimitExceededError{APIError: base, RetryAfter: ratelimit.RetryAfter(resp.Header)}
	}

	if parsed.Error != "" || parsed.ErrorDescription != "" {
		base.Code = parsed.Error
		base.Message = parsed.ErrorDescription
		if base.Message == "" {
			base.Message = parsed.Error
		}
		return &OAuthError{APIError: base, Description: parsed.ErrorDescription}
	}

	if base.Message == "" {
		base.Message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &BadRequestError{APIError: base, Errors: parsed.Errors}
	case http.StatusConflict:
		return &ConflictError{APIError: base}
	default:
		return &GenericServerError{APIError: base}
	}
}

func unprocessableMessage(parsed errorBody) string {
	if len(parsed.Errors) == 0 {
		if parsed.Message != "" {
			return parsed.Message
		}
		return "Unprocessable entity"
	}

	requirement := "requirements"
	if len(parsed.Errors) == 1 {
		requirement = "requirement"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The following %s must be met:\n", requirement)
	for _, fe := range parsed.Errors {
		fmt.Fprintf(&b, "\t%s\n", fe.Code)
	}
	return b.String()
}
