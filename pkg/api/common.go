package api

// Result is the envelope every endpoint of the admin API returns.
// Success=false means Message should be shown to the user.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Auth modes supported by the admin API.
const (
	AuthModeBearer = "bearer"
	AuthModeCookie = "cookie"
)
