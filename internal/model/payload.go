package model

// ExtractedPayload is the only structured shape trusted from the upstream
// generator. Content is always non-empty; Type is an opaque label the
// presentation may display but never validates.
type ExtractedPayload struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}
