package types

// Envelope bundles one outbound call for the dispatcher. It lives for the
// duration of a single dispatch only.
type Envelope struct {
	Operation Operation
	Params    map[string]string

	// SkipResponseEvent suppresses the `response` notification for this call.
	// SkipErrorEvent suppresses the `error` notification. Internal calls
	// (e.g. background session revalidation) set these so subscribers only
	// see traffic the caller initiated.
	SkipResponseEvent bool
	SkipErrorEvent    bool

	// SessionID the caller supplied for this call, used by error
	// classification to distinguish a killed session from a missing one.
	SessionID string
}
