package core

import "github.com/vovakirdan/chatty/internal/proto"

// Room is a password protected broadcast group.
type Room struct {
	ID           string
	passwordHash string
	members      map[string]*Member
}

func newRoom(id, passwordHash string) *Room {
	return &Room{
		ID:           id,
		passwordHash: passwordHash,
		members:      make(map[string]*Member),
	}
}

func (r *Room) add(m *Member) {
	r.members[m.UID] = m
	m.Room = r.ID
}

func (r *Room) remove(m *Member) {
	delete(r.members, m.UID)
	m.Room = ""
}

// Size returns the number of members.
func (r *Room) Size() int {
	return len(r.members)
}

// broadcast sends an event to every member except the one with uid except.
func (r *Room) broadcast(except, event string, resp proto.Response) {
	for uid, m := range r.members {
		if uid == except {
			continue
		}
		m.sink.Send(event, resp)
	}
}
