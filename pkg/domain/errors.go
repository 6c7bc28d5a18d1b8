package domain

import (
	"errors"
	"fmt"

	"github.com/keyauth-community/keyauth-go/pkg/types"
)

// ErrorKind is the closed set of actionable failure categories a caller can
// react to without parsing remote message text themselves.
type ErrorKind string

const (
	KindSessionKilled      ErrorKind = "SESSION_KILLED"
	KindNoSessionID        ErrorKind = "NO_SESSION_ID"
	KindNotInitialized     ErrorKind = "NOT_INITIALIZED"
	KindNotLoggedIn        ErrorKind = "NOT_LOGGED_IN"
	KindUnsupportedVarType ErrorKind = "UNSUPPORTED_VAR_TYPE"
	KindNoChatChannel      ErrorKind = "NO_CHAT_CHANNEL"
	KindInvalidClientAPI   ErrorKind = "INVALID_CLIENT_API"
	KindUnknown            ErrorKind = "UNKNOWN"
)

// APIError is a classified failure produced at the dispatch boundary or by an
// operation precondition check.
type APIError struct {
	Operation types.Operation
	Kind      ErrorKind
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("keyauth: %s failed (%s): %s", e.Operation, e.Kind, e.Message)
}

func NewAPIError(op types.Operation, kind ErrorKind, message string) *APIError {
	return &APIError{
		Operation: op,
		Kind:      kind,
		Message:   message,
	}
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == kind
}
