package gotrue

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession       = errors.New("gotrue: no session")
	ErrInvalidConfig   = errors.New("gotrue: invalid configuration")
	ErrInvalidResponse = errors.New("gotrue: invalid response")
	ErrInvalidToken    = errors.New("gotrue: invalid access token")
)

// APIError is an error reported by the auth server. Message is suitable for
// showing to the user as is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gotrue: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("gotrue: %d: %s", e.Status, e.Message)
}

// ErrorMessage extracts the user-facing message from err, falling back to
// fallback for non-API errors.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsClientError reports a 4xx answer from the auth server.
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

// errorBody covers both error shapes GoTrue has used over time.
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b errorBody) toAPIError(status int) *APIError {
	e := &APIError{Status: status, Code: b.ErrorCode}
	if e.Code == "" {
		e.Code = b.Error
	}
	for _, m := range []string{b.Msg, b.ErrorDescription, b.Message, b.Error} {
		if m != "" {
			e.Message = m
			break
		}
	}
	return e
}
