package domain

import (
	"strings"

	"github.com/keyauth-community/keyauth-go/pkg/types"
)

// classificationRule maps an opaque remote failure message to an ErrorKind.
// Rules are evaluated in order; the first match wins, so more specific
// predicates must come before broader ones.
type classificationRule struct {
	match func(message, sessionID string) bool
	kind  ErrorKind
}

// The remote service only gives us message text, so classification is string
// matching against its exact wording. Keeping every pattern in this one table
// centralizes that coupling.
var classificationRules = []classificationRule{
	{
		match: func(message, sessionID string) bool {
			return containsFold(message, "session not found") && sessionID == ""
		},
		kind: KindNoSessionID,
	},
	{
		match: func(message, _ string) bool {
			return containsFold(message, "session not found")
		},
		kind: KindSessionKilled,
	},
	{
		match: func(message, _ string) bool {
			return containsFold(message, "channel not found")
		},
		kind: KindNoChatChannel,
	},
	{
		match: func(message, _ string) bool {
			return containsFold(message, "not set up correctly")
		},
		kind: KindInvalidClientAPI,
	},
}

// Classify turns a failed response into an APIError. Unmatched messages,
// including transport-level failures, fall back to KindUnknown.
func Classify(op types.Operation, message, sessionID string) *APIError {
	for _, rule := range classificationRules {
		if rule.match(message, sessionID) {
			return NewAPIError(op, rule.kind, message)
		}
	}
	return NewAPIError(op, KindUnknown, message)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
