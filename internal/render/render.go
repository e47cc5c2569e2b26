// Package render maps inbound events and local outcomes to terminal lines.
package render

import (
	"fmt"

	"github.com/vovakirdan/chatty/internal/proto"
	"github.com/vovakirdan/chatty/internal/session"
)

// Line tags.
const (
	TagInfo  = "<Info>"
	TagWarn  = "<Warn>"
	TagError = "<Error>"
)

const (
	Welcome = `
Welcome to Chatty v0.0.1a, here are some useful commands:
    $create <password>: Create a room and automatically join
    $join <room> <password>: Join a room with password
    $leave: Leave the current room
For more information, use $help.
`
	Help = `Commands:
    $create <password>        Create a room and automatically join
    $join <room> <password>   Join a room with password
    $leave                    Leave the current room
    $nick <name>              Change your nickname
    $status                   Show your nickname and room
    $help                     Show this help
    $exit, $quit              Leave the chat
    <message>                 Send a message to the current room`
)

// Event renders an inbound event. state is the session snapshot after the event was applied.
// A nil result means nothing is shown.
func Event(event string, resp proto.Response, state session.Snapshot) []string {
	if !resp.OK() {
		return []string{Error(resp.Message)}
	}

	switch event {
	case proto.EventStatus:
		nickname, joined := state.Nickname, state.Room
		if resp.Detail != nil {
			nickname, joined = resp.Detail.Nickname, resp.Detail.Joined
		}
		if joined == "" {
			joined = proto.NoRoom
		}
		return []string{
			info("Your nickname: " + nickname),
			info("Room you are in: " + joined),
		}
	case proto.EventNewRoom:
		return []string{info("Successfully created new room: " + resp.Room)}
	case proto.EventJoinRoom:
		return []string{info("Successfully joined room: " + resp.Room)}
	case proto.EventLeaveRoom:
		if resp.Room == "" {
			return []string{info("Successfully left the room")}
		}
		return []string{info("Successfully left room: " + resp.Room)}
	case proto.EventNickname:
		return []string{info("Successfully changed your nickname to " + state.Nickname)}
	case proto.EventUnregister:
		return []string{info("Successfully unregistered")}
	case proto.EventMessage:
		// A success without received is the delivery ack for our own message.
		if resp.Received == nil {
			return nil
		}
		if resp.From == "" {
			return []string{*resp.Received}
		}
		return []string{fmt.Sprintf("<%s> %s", resp.From, *resp.Received)}
	}
	return nil
}

// Error renders an error line.
func Error(msg string) string {
	return TagError + " " + msg
}

// Warning renders a warning line.
func Warning(msg string) string {
	return TagWarn + " " + msg
}

// ReservedPrefix is the warning shown when a chat message starts with $.
func ReservedPrefix() string {
	return Warning("$ usually used in commands")
}

// SendFailed renders a failed send. err already names the event.
func SendFailed(err error) string {
	return Error(err.Error())
}

// ShutDown is printed once the session has ended.
func ShutDown() string {
	return info("Successfully shut down")
}

func info(msg string) string {
	return TagInfo + " " + msg
}
