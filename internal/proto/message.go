package proto

import (
	"encoding/json"
	"fmt"
)

// Event names shared by both directions of the channel.
const (
	EventRegister   = "register"
	EventUnregister = "unregister"
	EventNewRoom    = "new_room"
	EventJoinRoom   = "join_room"
	EventLeaveRoom  = "leave_room"
	EventNickname   = "nickname"
	EventStatus     = "status"
	EventMessage    = "message"
)

// MaxFrameSize bounds one encoded request. Larger requests are rejected by the server.
const MaxFrameSize = 1 << 20

// NoRoom is what the server reports in a status detail when the user is in no room.
const NoRoom = "None"

// Status is the outcome attached to every server response.
type Status int

const (
	StatusSuccess Status = 0
	StatusFailed  Status = 1
)

// Envelope is the frame carried over the wire in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an envelope for event.
func NewEnvelope(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// Decode unmarshals the envelope data into v. Empty data leaves v untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	return nil
}

// Stamper is implemented by every outbound request; the client stamps the session uid before sending.
type Stamper interface {
	Stamp(uid string)
}

// Identity carries the session uid on every outbound request.
type Identity struct {
	UID string `json:"uid"`
}

// Stamp sets the uid.
func (i *Identity) Stamp(uid string) { i.UID = uid }

// RegisterRequest announces a session to the server.
type RegisterRequest struct {
	Identity
	Nickname string `json:"nickname,omitempty"`
}

// UnregisterRequest ends a session.
type UnregisterRequest struct {
	Identity
}

// NewRoomRequest creates a password protected room and joins it.
type NewRoomRequest struct {
	Identity
	Password string `json:"password"`
}

// JoinRoomRequest joins an existing room.
type JoinRoomRequest struct {
	Identity
	Room     string `json:"room"`
	Password string `json:"password"`
}

// LeaveRoomRequest leaves the current room.
type LeaveRoomRequest struct {
	Identity
}

// NicknameRequest changes the session nickname.
type NicknameRequest struct {
	Identity
	Nickname string `json:"nickname"`
}

// StatusRequest asks for the server-side view of the session.
type StatusRequest struct {
	Identity
}

// MessageRequest sends chat text to the current room.
type MessageRequest struct {
	Identity
	Message string `json:"message"`
}

// Response is the payload of every inbound event. Which fields are set depends on the event name.
type Response struct {
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Room     string        `json:"room,omitempty"`
	Nickname string        `json:"nickname,omitempty"`
	Detail   *StatusDetail `json:"detail,omitempty"`
	From     string        `json:"from,omitempty"`
	// Received is only present on delivered chat content.
	Received *string `json:"received,omitempty"`
}

// StatusDetail is the server-side view of a session.
type StatusDetail struct {
	Nickname string `json:"nickname"`
	Joined   string `json:"joined"`
}

// OK reports whether the response carries a success status.
func (r Response) OK() bool { return r.Status == StatusSuccess }

// Success builds a success response.
func Success() Response { return Response{Status: StatusSuccess} }

// Failure builds a failed response with a human readable message.
func Failure(msg string) Response { return Response{Status: StatusFailed, Message: msg} }
