package types

// Model describes a model bundle found on disk.
type Model struct {
	// Stable identifier for the model (the bundle directory name).
	// example: toy-byte
	ID string `json:"id" example:"toy-byte"`
	// Human-friendly name.
	// example: Toy Byte LM
	Name string `json:"name" example:"Toy Byte LM"`
	// Absolute path to the bundle directory.
	// example: /home/user/models/toy-byte
	Path string `json:"path" example:"/home/user/models/toy-byte"`
	// Tokenizer kind: byte or vocab.
	// example: byte
	Tokenizer string `json:"tokenizer" example:"byte"`
	// Optional family from config.json.
	// example: toy
	Family string `json:"family,omitempty" example:"toy"`
}

// HistoryMessage is one stored message of a session.
type HistoryMessage struct {
	// user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// example: Once upon a time
	Content string `json:"content" example:"Once upon a time"`
	// RFC 3339 timestamp.
	// example: 2024-05-01T12:00:00Z
	CreatedAt string `json:"created_at" example:"2024-05-01T12:00:00Z"`
}

// HistorySession groups the messages of one session.
type HistorySession struct {
	// example: 3f1c9a52-3c57-4d2c-9a70-5b8f0ad2f6c1
	SessionID string `json:"session_id" example:"3f1c9a52-3c57-4d2c-9a70-5b8f0ad2f6c1"`
	// example: 2024-05-01T12:00:00Z
	CreatedAt string           `json:"created_at" example:"2024-05-01T12:00:00Z"`
	Messages  []HistoryMessage `json:"messages"`
}

// HistoryResponse is returned by GET /history, newest session first.
type HistoryResponse struct {
	Sessions []HistorySession `json:"sessions"`
}
