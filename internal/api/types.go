package api

// Wire types of the single API path and the event stream. The Sync Client
// decodes the same structs.

const (
	ActionGetPrefs      = "get-prefs"
	ActionSetBackground = "set-bg"
	ActionAuth          = "auth"

	EventBackground = "background"
)

type StatusResponse struct {
	Status string `json:"status"`
	D1     string `json:"d1"`
	KV     string `json:"kv"`
}

// PrefsResponse carries the global background, null when none was ever set.
// Version is 0 in that case.
type PrefsResponse struct {
	Background *string `json:"background"`
	Version    int64   `json:"version"`
	UpdatedAt  int64   `json:"updatedAt,omitempty"`
}

// Request is the POST body; which fields matter depends on Action.
type Request struct {
	Action   string  `json:"action"`
	Data     *string `json:"data,omitempty"`
	Username string  `json:"username,omitempty"`
	Password string  `json:"password,omitempty"`
}

type SetBackgroundResponse struct {
	Success bool  `json:"success"`
	Version int64 `json:"version"`
}

type AuthResponse struct {
	Success bool   `json:"success"`
	Mode    string `json:"mode,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Event is pushed to every websocket subscriber after a background write.
type Event struct {
	Type    string `json:"type"`
	Version int64  `json:"version"`
	Data    string `json:"data"`
}
