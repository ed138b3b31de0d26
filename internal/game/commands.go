package game

// Command is the wire format for client actions on an attached channel.
// CreateRoom and JoinRoom travel over HTTP before a channel exists; everything
// else is a JSON frame with one of the Cmd* types.
type Command struct {
	Type string `json:"type"`

	// Title and Artist are the guess for submit_answer.
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`

	// Text is the chat body for send_chat.
	Text string `json:"text,omitempty"`
}

const (
	CmdToggleReady  = "toggle_ready"
	CmdStartGame    = "start_game"
	CmdSubmitAnswer = "submit_answer"
	CmdSendChat     = "send_chat"
	CmdLeaveRoom    = "leave_room"
	CmdPing         = "ping"
)
