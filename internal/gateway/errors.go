package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrReauthRequired is matched by every *ReauthRequiredError.
var ErrReauthRequired = errors.New("re-authentication required")

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ReauthRequiredError reports that the refresh call failed and the session
// was torn down. The caller must send the user back to login.
type ReauthRequiredError struct {
	Err error
}

func (e *ReauthRequiredError) Error() string {
	if e.Err == nil {
		return ErrReauthRequired.Error()
	}
	return fmt.Sprintf("%s: %v", ErrReauthRequired, e.Err)
}

func (e *ReauthRequiredError) Unwrap() error { return e.Err }

func (e *ReauthRequiredError) Is(target error) bool { return target == ErrReauthRequired }

// IsStatus reports whether err carries a backend status equal to code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Message extracts a user-facing message from err. Backend errors come as
// {"error":{"message":"..."}}, {"message":"..."} or {"error":"..."}.
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if errors.Is(err, ErrReauthRequired) {
		return "Your session has expired. Please log in again."
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func newStatusError(code int, body []byte) *StatusError {
	return &StatusError{StatusCode: code, Message: backendMessage(body), Body: body}
}

func backendMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if json.Unmarshal(payload.Error, &flat) == nil && flat != "" {
			return flat
		}
	}
	return strings.TrimSpace(payload.Message)
}
