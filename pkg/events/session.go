package events

// Session lifecycle event types.
const (
	// TypeSessionExpired is published by the API client when the server
	// answers 401 and the stored credential has been cleared.
	TypeSessionExpired = "session.expired"
	// TypeSessionEstablished is published after a successful login.
	TypeSessionEstablished = "session.established"
	// TypeSessionEnded is published after a logout attempt, successful or not.
	TypeSessionEnded = "session.ended"
)

// SessionEvent describes a change of the local session.
type SessionEvent struct {
	*BaseEvent
	// Method and Path identify the call that triggered the event, if any.
	Method string
	Path   string
	// Username is set for established sessions when the server returned it.
	Username string
	Message  string
}

// NewSessionExpired builds the notification emitted on a 401 response.
func NewSessionExpired(method, path, message string) *SessionEvent {
	return &SessionEvent{
		BaseEvent: NewBaseEvent(TypeSessionExpired, map[string]any{
			"method": method,
			"path":   path,
		}),
		Method:  method,
		Path:    path,
		Message: message,
	}
}

// NewSessionEstablished builds the notification emitted after login.
func NewSessionEstablished(username string) *SessionEvent {
	return &SessionEvent{
		BaseEvent: NewBaseEvent(TypeSessionEstablished, map[string]any{
			"username": username,
		}),
		Username: username,
	}
}

// NewSessionEnded builds the notification emitted after logout.
func NewSessionEnded() *SessionEvent {
	return &SessionEvent{
		BaseEvent: NewBaseEvent(TypeSessionEnded, nil),
	}
}
