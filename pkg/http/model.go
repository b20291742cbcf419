package http

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int    `json:"status" example:"200"`
	Message string `json:"message" example:"OK"`
	Data    any    `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string         `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string         `json:"field,omitempty" example:"limit"`
	Message string         `json:"message,omitempty" example:"limit is required"`
	Params  map[string]any `json:"params,omitempty"`
}

// ListDataResponse represents list response.
type ListDataResponse struct {
	Rows  any   `json:"rows"`
	Total int64 `json:"total"`
}

// WebhookResponse is the body returned to alert senders.
type WebhookResponse struct {
	OK       bool     `json:"ok"`
	Accepted int      `json:"accepted,omitempty"`
	Deduped  bool     `json:"deduped,omitempty"`
	Error    string   `json:"error,omitempty"`
	Fields   []string `json:"fields,omitempty"`
}
