package dto

type ChatRequest struct {
	Message string `json:"message"`
	Consent bool   `json:"consent"`
	// Image is a base64-encoded attachment, decoded and size-checked at the
	// boundary before it reaches the pipeline.
	Image         string `json:"image,omitempty"`
	ImageMimeType string `json:"image_mime_type,omitempty"`
}

type ChatResponse struct {
	Response      string   `json:"response"`
	RedFlags      []string `json:"red_flags"`
	KnowledgeUsed bool     `json:"knowledge_used"`
	Error         string   `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HistoryRecordResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type HistoryResponse struct {
	Records []HistoryRecordResponse `json:"records"`
}
