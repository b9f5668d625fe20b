package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/Sternrassler/workos-client/internal/testutil"
)

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{name: "400 bad request", status: 400, body: `{"code":"invalid","message":"bad"}`, sentinel: ErrBadRequest},
		{name: "401 unauthorized", status: 401, body: `{"message":"Unauthorized"}`, sentinel: ErrUnauthorized},
		{name: "404 not found", status: 404, body: `{"message":"Not Found"}`, sentinel: ErrNotFound},
		{name: "409 conflict", status: 409, body: `{"message":"exists"}`, sentinel: ErrConflict},
		{name: "422 unprocessable", status: 422, body: `{"message":"Validation failed"}`, sentinel: ErrUnprocessableEntity},
		{name: "429 rate limit", status: 429, body: `{"message":"slow down"}`, sentinel: ErrRateLimitExceeded},
		{name: "400 oauth", status: 400, body: `{"error":"invalid_grant","error_description":"code expired"}`, sentinel: ErrOAuth},
		{name: "500 server", status: 500, body: `{"message":"boom"}`, sentinel: ErrServer},
		{name: "502 html", status: 502, body: `<html>bad gateway</html>`, sentinel: ErrServer},
		{name: "403 unlisted 4xx", status: 403, body: `{"message":"forbidden"}`, sentinel: ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetResponse("/resource", testutil.NewErrorResponse(tt.status, "req_abc", tt.body))

			c := newTestClient(t, mock)
			err := c.Get(context.Background(), "/resource", nil, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%T, %v) = false", err, tt.sentinel)
			}

			var statusErr interface{ StatusCode() int }
			if !errors.As(err, &statusErr) || statusErr.StatusCode() != tt.status {
				t.Errorf("status not exposed for %T", err)
			}
			if !strings.Contains(err.Error(), "req_abc") {
				t.Errorf("Error() = %q, want request id", err.Error())
			}
		})
	}
}

func TestNotFoundError_PathAndRequestID(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/directories/directory_123", testutil.NewErrorResponse(http.StatusNotFound, "req_404", `{"message":"Not Found"}`))

	c := newTestClient(t, mock)
	err := c.Get(context.Background(), "/directories/directory_123", nil, nil)

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %T, want *NotFoundError", err)
	}
	if notFound.Path != "/directories/directory_123" {
		t.Errorf("Path = %q", notFound.Path)
	}
	if notFound.RequestID != "req_404" {
		t.Errorf("RequestID = %q", notFound.RequestID)
	}
	if notFound.Message != "The requested path '/directories/directory_123' could not be found." {
		t.Errorf("Message = %q", notFound.Message)
	}
}

func TestUnauthorizedError_AnyBodyShape(t *testing.T) {
	bodies := []string{
		`{"message":"Unauthorized"}`,
		`{"error":"invalid_client","error_description":"bad secret"}`,
		`not json at all`,
		``,
		`[]`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetResponse("/organizations", testutil.NewErrorResponse(http.StatusUnauthorized, "req_401", body))

			c := newTestClient(t, mock)
			err := c.Get(context.Background(), "/organizations", nil, nil)

			var unauthorized *UnauthorizedError
			if !errors.As(err, &unauthorized) {
				t.Fatalf("error = %T, want *UnauthorizedError", err)
			}
			if unauthorized.RequestID != "req_401" {
				t.Errorf("RequestID = %q", unauthorized.RequestID)
			}
			if unauthorized.Message != "Could not authorize the request. Maybe your API key is invalid?" {
				t.Errorf("Message = %q", unauthorized.Message)
			}
		})
	}
}

func TestUnprocessableEntityError_Message(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
		errors   int
	}{
		{
			name:     "single requirement",
			body:     `{"code":"invalid_request_parameters","errors":[{"field":"domain","code":"domain_invalid"}]}`,
			expected: "The following requirement must be met:\n\tdomain_invalid\n",
			errors:   1,
		},
		{
			name:     "multiple requirements",
			body:     `{"errors":[{"code":"name_required"},{"code":"domain_invalid"}]}`,
			expected: "The following requirements must be met:\n\tname_required\n\tdomain_invalid\n",
			errors:   2,
		},
		{
			name:     "message only",
			body:     `{"message":"Validation failed"}`,
			expected: "Validation failed",
		},
		{
			name:     "empty body",
			body:     ``,
			expected: "Unprocessable entity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetResponse("/organizations", testutil.NewErrorResponse(http.StatusUnprocessableEntity, "req_422", tt.body))

			c := newTestClient(t, mock)
			err := c.Post(context.Background(), "/organizations", map[string]string{}, nil)

			var unprocessable *UnprocessableEntityError
			if !errors.As(err, &unprocessable) {
				t.Fatalf("error = %T, want *UnprocessableEntityError", err)
			}
			if unprocessable.Message != tt.expected {
				t.Errorf("Message = %q, want %q", unprocessable.Message, tt.expected)
			}
			if len(unprocessable.Errors) != tt.errors {
				t.Errorf("len(Errors) = %d, want %d", len(unprocessable.Errors), tt.errors)
			}
		})
	}
}

func TestGenericServerError_KeepsRawBody(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/organizations", testutil.NewErrorResponse(http.StatusInternalServerError, "req_500", `{"message":"boom","detail":"x"}`))

	c := newTestClient(t, mock)
	err := c.Get(context.Background(), "/organizations", nil, nil)

	var serverErr *GenericServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("error = %T, want *GenericServerError", err)
	}
	if string(serverErr.RawBody) != `{"message":"boom","detail":"x"}` {
		t.Errorf("RawBody = %q", serverErr.RawBody)
	}
	if serverErr.Message != "boom" {
		t.Errorf("Message = %q", serverErr.Message)
	}
	if ClassifyError(err) != ErrorClassServer {
		t.Errorf("ClassifyError() = %q", ClassifyError(err))
	}
}

func TestAPIError_Format(t *testing.T) {
	err := &ConflictError{APIError: APIError{
		Status:    409,
		RequestID: "req_1",
		Code:      "organization_exists",
		Message:   "Organization already exists",
	}}

	expected := "workos conflict (status 409): Organization already exists [organization_exists], request_id req_1"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}
