package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: action already in progress
	Error string `json:"error" example:"action already in progress"`
	// HTTP status code.
	// example: 409
	Code int `json:"code" example:"409"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Latest server snapshot.
	Server ServerStatus `json:"server"`
	// Currently selected model id, if any.
	// example: large-v3-turbo
	Selected ModelID `json:"selected,omitempty" example:"large-v3-turbo"`
	// Whether the selected model is downloaded and warmed.
	// example: true
	ModelReady bool `json:"model_ready" example:"true"`
	// Most recent orchestration failure, if any.
	LastError string `json:"last_error,omitempty"`
	// Model ids with a download in flight.
	Downloading []ModelID `json:"downloading"`
	// Model ids with a warmup in flight.
	WarmingUp []ModelID `json:"warming_up"`
}

// AvailabilityResponse is returned by GET /models/{id}/available.
type AvailabilityResponse struct {
	// Canonical id the query resolved to.
	// example: base
	ID ModelID `json:"id" example:"base"`
	// Whether the model's weights are present locally.
	// example: true
	Available bool `json:"available" example:"true"`
}

// ActionResponse is returned by POST /server/{action}.
type ActionResponse struct {
	// Snapshot after the action completed.
	Server ServerStatus `json:"server"`
}

// DownloadResult reports the outcome of POST /models/{id}/download.
type DownloadResult struct {
	// Canonical id that was downloaded.
	// example: base
	ID ModelID `json:"id" example:"base"`
	// Whether the weights are now present locally.
	// example: true
	Downloaded bool `json:"downloaded" example:"true"`
	// Whether the follow-up warmup succeeded. False with Downloaded true
	// means the model is usable but not pre-warmed.
	// example: true
	Warmed bool `json:"warmed" example:"true"`
	// Human-readable detail when the warmup was skipped or failed.
	Detail string `json:"detail,omitempty"`
}

// SelectResponse acknowledges a model selection with a background op id.
type SelectResponse struct {
	// Canonical id the selection resolved to.
	// example: base
	ID ModelID `json:"id" example:"base"`
	// Identifier of the background evaluation kicked off by the selection.
	// example: 3f1a0f6e-8a9b-4a42-9a9e-2f4f9d6f0c11
	OpID string `json:"op_id" example:"3f1a0f6e-8a9b-4a42-9a9e-2f4f9d6f0c11"`
}

// EventKind labels a server-sent event on GET /events.
type EventKind string

const (
	EventStatus    EventKind = "status"
	EventDownloads EventKind = "downloads"
	EventWarmups   EventKind = "warmups"
)

// Event is one server-sent event payload. Exactly one of the value fields
// is set, according to Kind.
type Event struct {
	Kind   EventKind     `json:"kind"`
	Server *ServerStatus `json:"server,omitempty"`
	Models []ModelID     `json:"models,omitempty"`
}
