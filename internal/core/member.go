package core

import "github.com/vovakirdan/chatty/internal/proto"

// Sink delivers events to one connection.
type Sink interface {
	Send(event string, resp proto.Response)
}

// Member is a registered session as seen by the server.
type Member struct {
	UID      string
	Nickname string
	// Room is empty when the member joined nothing.
	Room string
	sink Sink
}

func newMember(uid, nickname string, sink Sink) *Member {
	if nickname == "" {
		nickname = DefaultNickname
	}
	return &Member{UID: uid, Nickname: nickname, sink: sink}
}
