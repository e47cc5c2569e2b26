package command

import "strings"

// Command prefixes. Recognition is exact equality with the first token.
const (
	PrefixCreate = "$create"
	PrefixJoin   = "$join"
	PrefixLeave  = "$leave"
	PrefixNick   = "$nick"
	PrefixStatus = "$status"
	PrefixHelp   = "$help"
	PrefixExit   = "$exit"
	PrefixQuit   = "$quit"

	reservedPrefix = "$"
)

const (
	msgCreateNeedsPassword = "Require password to create a new room: $create <password>"
	msgJoinNeedsRoom       = "Require room number to join: $join <room_number> <password>"
	msgJoinNeedsPassword   = "Require password to join room: $join <room_number> <password>"
	msgNickNeedsName       = "No nick name given: $nick <name>"
)

// Interpret parses one raw input line.
// It returns (nil, nil) for blank input and a *ValidationError when a recognised
// command lacks required arguments.
func Interpret(line string) (*Command, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, nil
	}

	switch tokens[0] {
	case PrefixCreate:
		if len(tokens) < 2 {
			return nil, invalid(msgCreateNeedsPassword)
		}
		return &Command{Kind: KindCreateRoom, Password: tokens[1]}, nil
	case PrefixJoin:
		switch {
		case len(tokens) < 2:
			return nil, invalid(msgJoinNeedsRoom)
		case len(tokens) < 3:
			return nil, invalid(msgJoinNeedsPassword)
		}
		return &Command{Kind: KindJoinRoom, Room: tokens[1], Password: tokens[2]}, nil
	case PrefixLeave:
		return &Command{Kind: KindLeaveRoom}, nil
	case PrefixNick:
		if len(tokens) < 2 {
			return nil, invalid(msgNickNeedsName)
		}
		return &Command{Kind: KindSetNickname, Nickname: tokens[1]}, nil
	case PrefixStatus:
		return &Command{Kind: KindQueryStatus}, nil
	case PrefixHelp:
		return &Command{Kind: KindHelp}, nil
	case PrefixExit, PrefixQuit:
		return &Command{Kind: KindQuit}, nil
	}

	if strings.HasPrefix(tokens[0], reservedPrefix) {
		return &Command{Kind: KindUnknown, Text: line}, nil
	}
	return &Command{Kind: KindMessage, Text: line}, nil
}
