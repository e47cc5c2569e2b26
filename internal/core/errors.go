package core

import "fmt"

// Failure messages sent back to clients. Wording matches what existing clients display.
const (
	MsgUIDMissing      = "Unrecognized user, UID is missing"
	MsgNotRegistered   = "Unrecognized user, UID is not registered"
	MsgCreateNeedsPass = "Require password to create a new room"
	MsgJoinNeedsRoom   = "Require room number to join"
	MsgJoinNeedsPass   = "Require password to join room"
	MsgNotInRoom       = "Did not join any room"
	MsgNoMessage       = "No message to send"
	MsgNoNickname      = "No nickname given"
	MsgMalformed       = "Malformed request"
	MsgInternal        = "Internal server error"
)

func msgAlreadyInRoom(room string) string {
	return fmt.Sprintf("At room %s already", room)
}

func msgWrongPassword(room string) string {
	return fmt.Sprintf("Incorrect password for room %s", room)
}

func msgRoomNotFound(room string) string {
	return fmt.Sprintf("Room %s does not exists", room)
}
