package jobclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("request timed out")

// TimeoutError reports a call that ran past its deadline and was aborted.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out after %s", e.Op, e.After)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Code    int
	Message string
	body    []byte
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("job service returned %d", e.Code)
	}
	return fmt.Sprintf("job service returned %d: %s", e.Code, e.Message)
}

func newStatusError(code int, body []byte) *StatusError {
	return &StatusError{Code: code, Message: embeddedMessage(body), body: body}
}

// embeddedMessage prefers a JSON error/message field over the raw body.
func embeddedMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return truncate(strings.TrimSpace(string(body)), 200)
}

// truncate returns a truncated string representation for error messages.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
