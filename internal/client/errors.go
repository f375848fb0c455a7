package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the reporting API.
type APIError struct {
	operation  string
	statusCode int
	body       []byte
}

func newAPIError(operation string, statusCode int, body []byte) *APIError {
	return &APIError{operation: operation, statusCode: statusCode, body: body}
}

func (e *APIError) Error() string {
	msg := string(bytes.TrimSpace(e.body))
	if msg == "" {
		msg = http.StatusText(e.statusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.operation, e.statusCode, msg)
}

// StatusCode returns the HTTP status code from the response.
func (e *APIError) StatusCode() int { return e.statusCode }

// Operation returns the api.method that failed.
func (e *APIError) Operation() string { return e.operation }

// Payload returns the response body when it is a JSON object, else nil.
// The reporting API describes report failures in such bodies.
func (e *APIError) Payload() json.RawMessage {
	var obj map[string]json.RawMessage
	if json.Unmarshal(e.body, &obj) != nil {
		return nil
	}
	return json.RawMessage(e.body)
}

// IsUnauthorized reports whether err is an API error with HTTP 401 status.
func IsUnauthorized(err error) bool { return HasStatusCode(err, http.StatusUnauthorized) }

// HasStatusCode reports whether err is an API error whose HTTP status code matches.
func HasStatusCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.statusCode == code
}
