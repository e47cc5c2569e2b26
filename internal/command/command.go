// Package command turns raw terminal lines into client intents.
package command

// Kind describes what the user wants to do.
type Kind int

const (
	// KindMessage sends the line as chat text to the current room.
	KindMessage Kind = iota
	// KindCreateRoom creates a password protected room.
	KindCreateRoom
	// KindJoinRoom joins an existing room.
	KindJoinRoom
	// KindLeaveRoom leaves the current room.
	KindLeaveRoom
	// KindSetNickname changes the session nickname.
	KindSetNickname
	// KindQueryStatus asks the server for the session status.
	KindQueryStatus
	// KindQuit ends the session.
	KindQuit
	// KindHelp prints the command list locally.
	KindHelp
	// KindUnknown is a $-prefixed line matching no command. It is still sent as chat text.
	KindUnknown
)

var kindNames = map[Kind]string{
	KindMessage:     "message",
	KindCreateRoom:  "create",
	KindJoinRoom:    "join",
	KindLeaveRoom:   "leave",
	KindSetNickname: "nick",
	KindQueryStatus: "status",
	KindQuit:        "quit",
	KindHelp:        "help",
	KindUnknown:     "unknown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// Command is one parsed input line. Only the fields relevant to Kind are set.
type Command struct {
	Kind     Kind
	Room     string
	Password string
	Nickname string
	// Text is the untrimmed input line for KindMessage and KindUnknown.
	Text string
}

// SendsText reports whether the command is delivered as a chat message.
func (c Command) SendsText() bool {
	return c.Kind == KindMessage || c.Kind == KindUnknown
}
