package roleplay

// Outbound message types
const (
	TypeQuestion   = "question"
	TypeFollowUp   = "follow_up"
	TypeSessionEnd = "session_end"
	TypeError      = "error"
	TypePong       = "pong"
)

// Inbound message types
const (
	TypeAnswer     = "answer"
	TypePing       = "ping"
	TypeEndSession = "end_session"
)

// Close codes sent to the client
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	CloseSessionNotFound = 4004
	CloseSessionInUse    = 4009
)

const (
	msgSessionNotFound = "Session not found or expired."
	msgSessionInUse    = "Session is already in progress."
	msgInvalidFormat   = "Invalid message format."
	msgEmptyAnswer     = "Please provide your answer."
	msgInternalError   = "An error occurred."
	msgShuttingDown    = "Server is shutting down, please reconnect shortly."
)

// Outbound is a server to client message
type Outbound struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	AudioB64 string `json:"audio_b64,omitempty"`
	Turn     *int   `json:"turn,omitempty"`
	MaxTurns *int   `json:"max_turns,omitempty"`
	IsLast   bool   `json:"is_last"`
}

// Inbound is a client to server message
type Inbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func errorMessage(text string) Outbound {
	return Outbound{Type: TypeError, Content: text}
}

func turnMessage(msgType, text, audio string, turn, maxTurns int, last bool) Outbound {
	return Outbound{
		Type:     msgType,
		Content:  text,
		AudioB64: audio,
		Turn:     &turn,
		MaxTurns: &maxTurns,
		IsLast:   last,
	}
}

func validInbound(t string) bool {
	switch t {
	case TypeAnswer, TypePing, TypeEndSession:
		return true
	}
	return false
}
