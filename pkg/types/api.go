package types

// ChatRequest starts one generation turn.
type ChatRequest struct {
	// Opaque client-chosen session identifier. Required.
	// example: 3f1c9a52-3c57-4d2c-9a70-5b8f0ad2f6c1
	SessionID string `json:"session_id" example:"3f1c9a52-3c57-4d2c-9a70-5b8f0ad2f6c1"`
	// Prompt text. May be empty.
	// example: Once upon a time
	Prompt string `json:"prompt" example:"Once upon a time"`
	// Step budget. Zero or omitted uses the server default; values above the
	// server ceiling are clamped.
	// example: 64
	MaxTokens int `json:"max_tokens,omitempty" example:"64"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	// example: 3f1c9a52-3c57-4d2c-9a70-5b8f0ad2f6c1
	SessionID string `json:"session_id" example:"3f1c9a52-3c57-4d2c-9a70-5b8f0ad2f6c1"`
	// Full generated text, including the echoed prompt.
	// example: Once upon a time there was a fox.
	Response string `json:"response" example:"Once upon a time there was a fox."`
	// Why generation stopped (eos, max_steps, cancelled, disconnected, empty_prompt).
	// example: eos
	StopReason string `json:"stop_reason" example:"eos"`
	// Number of sampled tokens.
	// example: 12
	Tokens int `json:"tokens" example:"12"`
}

// CancelRequest asks the server to stop every in-flight run of a session.
type CancelRequest struct {
	// example: 3f1c9a52-3c57-4d2c-9a70-5b8f0ad2f6c1
	SessionID string `json:"session_id" example:"3f1c9a52-3c57-4d2c-9a70-5b8f0ad2f6c1"`
}

// CancelResponse reports how many runs were signalled.
type CancelResponse struct {
	// example: 3f1c9a52-3c57-4d2c-9a70-5b8f0ad2f6c1
	SessionID string `json:"session_id" example:"3f1c9a52-3c57-4d2c-9a70-5b8f0ad2f6c1"`
	// example: 1
	Cancelled int `json:"cancelled" example:"1"`
}

// StreamFrame is one WebSocket message sent by GET /chat/ws.
type StreamFrame struct {
	// chunk, error or done.
	// example: chunk
	Type string `json:"type" example:"chunk"`
	// Text of a chunk frame.
	Text string `json:"text,omitempty"`
	// Message of an error frame.
	Error string `json:"error,omitempty"`
	// HTTP-equivalent status of an error frame (429 when the model is busy).
	// example: 429
	Code int `json:"code,omitempty" example:"429"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall state (loading, ready, error, shutting_down).
	// example: ready
	State string `json:"state" example:"ready"`
	// Identifier of the loaded model.
	// example: toy-byte
	Model string `json:"model" example:"toy-byte"`
	// 1 while a run holds the model.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Runs waiting for the model.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Maximum runs (holder plus waiters) before requests are rejected.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Hard ceiling applied to every step budget.
	// example: 256
	MaxSteps int `json:"max_steps" example:"256"`
	// Sessions with at least one in-flight run.
	// example: 1
	ActiveSessions int `json:"active_sessions" example:"1"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// example: 42
	TurnsSaved uint64 `json:"turns_saved" example:"42"`
	// example: 0
	TurnsFailed uint64 `json:"turns_failed" example:"0"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
}
