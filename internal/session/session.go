// Package session holds the client-side projection of the session: identity and room membership.
// It only changes in response to successful server acknowledgments.
package session

import (
	"sync"

	"github.com/vovakirdan/chatty/internal/proto"
)

// DefaultNickname is used until the server confirms a different one.
const DefaultNickname = "anonymous"

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	UID      string
	Nickname string
	// Room is empty when the session is in no room.
	Room string
}

// InRoom reports whether the snapshot has a room.
func (s Snapshot) InRoom() bool { return s.Room != "" }

// Change describes a state transition caused by an inbound event.
type Change struct {
	Event  string
	Before Snapshot
	After  Snapshot
}

// State is safe for concurrent use by the input loop and the event dispatcher.
type State struct {
	mu       sync.Mutex
	uid      string
	nickname string
	room     string
	// pending holds requested nicknames in send order; responses arrive in the same order.
	pending []string
}

// New creates the state for uid. An empty nickname falls back to DefaultNickname.
func New(uid, nickname string) *State {
	if nickname == "" {
		nickname = DefaultNickname
	}
	return &State{uid: uid, nickname: nickname}
}

// UID returns the immutable session identifier.
func (s *State) UID() string {
	return s.uid
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{UID: s.uid, Nickname: s.nickname, Room: s.room}
}

// RequestNickname records a nickname change that was sent but not yet confirmed.
func (s *State) RequestNickname(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, name)
}

// CancelNickname forgets the most recent pending request for name, used when sending it failed.
func (s *State) CancelNickname(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.pending) - 1; i >= 0; i-- {
		if s.pending[i] == name {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Reset clears room membership at session end.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = ""
	s.pending = nil
}

// Apply projects an inbound event onto the state. It returns nil when nothing changed.
func (s *State) Apply(event string, resp proto.Response) *Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.snapshotLocked()

	if event == proto.EventNickname {
		// Every nickname response consumes one pending request, whatever its outcome.
		requested, ok := s.popPendingLocked()
		if resp.OK() {
			switch {
			case resp.Nickname != "":
				s.nickname = resp.Nickname
			case ok:
				s.nickname = requested
			}
		}
	}

	if resp.OK() {
		switch event {
		case proto.EventStatus:
			if resp.Detail != nil {
				if resp.Detail.Nickname != "" {
					s.nickname = resp.Detail.Nickname
				}
				s.room = normalizeRoom(resp.Detail.Joined)
			}
		case proto.EventNewRoom, proto.EventJoinRoom:
			if room := normalizeRoom(resp.Room); room != "" {
				s.room = room
			}
		case proto.EventLeaveRoom:
			s.room = ""
		}
	}

	after := s.snapshotLocked()
	if after == before {
		return nil
	}
	return &Change{Event: event, Before: before, After: after}
}

func (s *State) popPendingLocked() (string, bool) {
	if len(s.pending) == 0 {
		return "", false
	}
	name := s.pending[0]
	s.pending = s.pending[1:]
	return name, true
}

func normalizeRoom(room string) string {
	if room == proto.NoRoom {
		return ""
	}
	return room
}
