package models

// OutboundMessageRequest is a text message pushed to a phone number, by an
// operator through the API or by the nightly digest.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}
