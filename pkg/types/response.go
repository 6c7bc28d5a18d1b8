package types

// Response is the normalized result of a dispatched operation. Success and
// Message are always populated from the remote payload (or synthesized, see
// the dispatcher's reshaping rules); every other top-level payload field ends
// up in Data.
type Response struct {
	Success bool   `json:"success" mapstructure:"success"`
	Message string `json:"message" mapstructure:"message"`
	Nonce   string `json:"nonce,omitempty" mapstructure:"nonce"`
	Time    int64  `json:"time,omitempty" mapstructure:"time"`

	// Data holds the operation-specific payload. For most operations it is a
	// map[string]any of the remaining top-level fields; for `webhook` it is
	// the remote `response` field verbatim.
	Data any `json:"data,omitempty" mapstructure:"data"`
}

// DataMap returns Data as a map when the payload was an object, or nil.
func (r *Response) DataMap() map[string]any {
	m, _ := r.Data.(map[string]any)
	return m
}
