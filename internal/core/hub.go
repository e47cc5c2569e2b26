// Package core is the room registry of the companion server: sessions, rooms,
// password checks and broadcast fan-out.
package core

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatty/internal/auth"
	"github.com/vovakirdan/chatty/internal/proto"
	"github.com/vovakirdan/chatty/internal/utils"
)

// DefaultNickname is assigned when register carries no nickname.
const DefaultNickname = "anonymous"

// Options configures a Hub.
type Options struct {
	RoomIDLength int
	Hasher       auth.Hasher
	// NewRoomID overrides room id generation, mainly for tests.
	NewRoomID func(n int) string
}

type handlerFunc func(sink Sink, env proto.Envelope)

// Hub owns every session and room. It is safe for concurrent use by many connections.
type Hub struct {
	mu      sync.Mutex
	members map[string]*Member
	rooms   map[string]*Room

	roomIDLen int
	newRoomID func(int) string
	hasher    auth.Hasher
	log       *zerolog.Logger

	handlers map[string]handlerFunc
}

// NewHub creates an empty hub.
func NewHub(opts Options, logger *zerolog.Logger) *Hub {
	if opts.RoomIDLength <= 0 {
		opts.RoomIDLength = 5
	}
	if opts.NewRoomID == nil {
		opts.NewRoomID = utils.NewRoomID
	}
	h := &Hub{
		members:   make(map[string]*Member),
		rooms:     make(map[string]*Room),
		roomIDLen: opts.RoomIDLength,
		newRoomID: opts.NewRoomID,
		hasher:    opts.Hasher,
		log:       logger,
	}
	h.handlers = map[string]handlerFunc{
		proto.EventRegister:   h.register,
		proto.EventUnregister: h.unregister,
		proto.EventNewRoom:    h.newRoom,
		proto.EventJoinRoom:   h.joinRoom,
		proto.EventLeaveRoom:  h.leaveRoom,
		proto.EventMessage:    h.message,
		proto.EventNickname:   h.nickname,
		proto.EventStatus:     h.status,
	}
	return h
}

// Handle processes one inbound envelope from sink. Unknown events are ignored.
func (h *Hub) Handle(sink Sink, env proto.Envelope) {
	fn, ok := h.handlers[env.Event]
	if !ok {
		h.log.Debug().Str("event", env.Event).Msg("ignore unknown event")
		return
	}
	fn(sink, env)
}

// Disconnect unregisters every session bound to sink.
func (h *Hub) Disconnect(sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for uid, m := range h.members {
		if m.sink == sink {
			h.removeMemberLocked(m)
			h.log.Info().Str("uid", uid).Msg("session dropped with connection")
		}
	}
}

// Member returns a copy of the session registered under uid.
func (h *Hub) Member(uid string) (Member, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.members[uid]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// RoomSize returns the number of members in room and whether the room exists.
func (h *Hub) RoomSize(room string) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[room]
	if !ok {
		return 0, false
	}
	return r.Size(), true
}

// decode unmarshals env into req and checks the uid. It replies with a failure and
// returns false when the request cannot be served.
func decode(sink Sink, env proto.Envelope, req any, uid func() string) bool {
	if err := env.Decode(req); err != nil {
		sink.Send(env.Event, proto.Failure(MsgMalformed))
		return false
	}
	if uid() == "" {
		sink.Send(env.Event, proto.Failure(MsgUIDMissing))
		return false
	}
	return true
}

// memberLocked looks up a registered session. Caller holds h.mu.
func (h *Hub) memberLocked(uid string) (*Member, bool) {
	m, ok := h.members[uid]
	return m, ok
}

func (h *Hub) removeMemberLocked(m *Member) {
	h.leaveLocked(m)
	delete(h.members, m.UID)
}

func (h *Hub) leaveLocked(m *Member) string {
	if m.Room == "" {
		return ""
	}
	left := m.Room
	if r, ok := h.rooms[left]; ok {
		r.remove(m)
	}
	m.Room = ""
	return left
}

func (h *Hub) register(sink Sink, env proto.Envelope) {
	var req proto.RegisterRequest
	if !decode(sink, env, &req, func() string { return req.UID }) {
		return
	}

	h.mu.Lock()
	if m, ok := h.members[req.UID]; ok {
		// Same session on a new connection: keep identity and room, move delivery.
		m.sink = sink
	} else {
		h.members[req.UID] = newMember(req.UID, req.Nickname, sink)
	}
	h.mu.Unlock()

	h.log.Info().Str("uid", req.UID).Msg("user registered")
	sink.Send(proto.EventRegister, proto.Success())
}

func (h *Hub) unregister(sink Sink, env proto.Envelope) {
	var req proto.UnregisterRequest
	if !decode(sink, env, &req, func() string { return req.UID }) {
		return
	}

	h.mu.Lock()
	if m, ok := h.members[req.UID]; ok {
		h.removeMemberLocked(m)
		h.log.Info().Str("uid", req.UID).Msg("user unregistered")
	}
	h.mu.Unlock()

	sink.Send(proto.EventUnregister, proto.Success())
}

func (h *Hub) newRoom(sink Sink, env proto.Envelope) {
	var req proto.NewRoomRequest
	if !decode(sink, env, &req, func() string { return req.UID }) {
		return
	}

	h.mu.Lock()
	_, registered := h.memberLocked(req.UID)
	h.mu.Unlock()
	switch {
	case !registered:
		sink.Send(env.Event, proto.Failure(MsgNotRegistered))
		return
	case req.Password == "":
		sink.Send(env.Event, proto.Failure(MsgCreateNeedsPass))
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("hash room password")
		sink.Send(env.Event, proto.Failure(MsgInternal))
		return
	}

	h.mu.Lock()
	m, ok := h.memberLocked(req.UID)
	if !ok {
		h.mu.Unlock()
		sink.Send(env.Event, proto.Failure(MsgNotRegistered))
		return
	}
	id := h.newRoomID(h.roomIDLen)
	for {
		if _, taken := h.rooms[id]; !taken {
			break
		}
		id = h.newRoomID(h.roomIDLen)
	}
	room := newRoom(id, hash)
	h.rooms[id] = room
	h.leaveLocked(m)
	room.add(m)
	h.mu.Unlock()

	h.log.Info().Str("uid", req.UID).Str("room", id).Msg("room created")
	sink.Send(proto.EventNewRoom, proto.Response{Status: proto.StatusSuccess, Room: id})
	sink.Send(proto.EventJoinRoom, proto.Response{Status: proto.StatusSuccess, Room: id})
}

func (h *Hub) joinRoom(sink Sink, env proto.Envelope) {
	var req proto.JoinRoomRequest
	if !decode(sink, env, &req, func() string { return req.UID }) {
		return
	}

	h.mu.Lock()
	m, registered := h.memberLocked(req.UID)
	var (
		current string
		hash    string
		exists  bool
	)
	if registered {
		current = m.Room
		if r, ok := h.rooms[req.Room]; ok {
			hash, exists = r.passwordHash, true
		}
	}
	h.mu.Unlock()

	switch {
	case !registered:
		sink.Send(env.Event, proto.Failure(MsgNotRegistered))
		return
	case req.Room == "":
		sink.Send(env.Event, proto.Failure(MsgJoinNeedsRoom))
		return
	case req.Password == "":
		sink.Send(env.Event, proto.Failure(MsgJoinNeedsPass))
		return
	case current == req.Room:
		sink.Send(env.Event, proto.Failure(msgAlreadyInRoom(req.Room)))
		return
	case !exists:
		sink.Send(env.Event, proto.Failure(msgRoomNotFound(req.Room)))
		return
	}

	ok, err := h.hasher.Match(hash, req.Password)
	if err != nil {
		h.log.Error().Err(err).Str("room", req.Room).Msg("check room password")
		sink.Send(env.Event, proto.Failure(MsgInternal))
		return
	}
	if !ok {
		sink.Send(env.Event, proto.Failure(msgWrongPassword(req.Room)))
		return
	}

	h.mu.Lock()
	m, registered = h.memberLocked(req.UID)
	room, exists := h.rooms[req.Room]
	if registered && exists {
		h.leaveLocked(m)
		room.add(m)
	}
	h.mu.Unlock()

	if !registered {
		sink.Send(env.Event, proto.Failure(MsgNotRegistered))
		return
	}
	if !exists {
		sink.Send(env.Event, proto.Failure(msgRoomNotFound(req.Room)))
		return
	}
	h.log.Info().Str("uid", req.UID).Str("room", req.Room).Msg("room joined")
	sink.Send(proto.EventJoinRoom, proto.Response{Status: proto.StatusSuccess, Room: req.Room})
}

func (h *Hub) leaveRoom(sink Sink, env proto.Envelope) {
	var req proto.LeaveRoomRequest
	if !decode(sink, env, &req, func() string { return req.UID }) {
		return
	}

	h.mu.Lock()
	m, registered := h.memberLocked(req.UID)
	var left string
	if registered {
		left = h.leaveLocked(m)
	}
	h.mu.Unlock()

	switch {
	case !registered:
		sink.Send(env.Event, proto.Failure(MsgNotRegistered))
	case left == "":
		sink.Send(env.Event, proto.Failure(MsgNotInRoom))
	default:
		sink.Send(proto.EventLeaveRoom, proto.Response{Status: proto.StatusSuccess, Room: left})
	}
}

func (h *Hub) message(sink Sink, env proto.Envelope) {
	var req proto.MessageRequest
	if !decode(sink, env, &req, func() string { return req.UID }) {
		return
	}

	h.mu.Lock()
	m, registered := h.memberLocked(req.UID)
	var reply proto.Response
	switch {
	case !registered:
		reply = proto.Failure(MsgNotRegistered)
	case req.Message == "":
		reply = proto.Failure(MsgNoMessage)
	case m.Room == "":
		reply = proto.Failure(MsgNotInRoom)
	default:
		text := req.Message
		if r, ok := h.rooms[m.Room]; ok {
			r.broadcast(m.UID, proto.EventMessage, proto.Response{
				Status:   proto.StatusSuccess,
				From:     m.Nickname,
				Received: &text,
			})
		}
		reply = proto.Success()
	}
	h.mu.Unlock()

	sink.Send(proto.EventMessage, reply)
}

func (h *Hub) nickname(sink Sink, env proto.Envelope) {
	var req proto.NicknameRequest
	if !decode(sink, env, &req, func() string { return req.UID }) {
		return
	}

	h.mu.Lock()
	m, registered := h.memberLocked(req.UID)
	var reply proto.Response
	switch {
	case !registered:
		reply = proto.Failure(MsgNotRegistered)
	case req.Nickname == "":
		reply = proto.Failure(MsgNoNickname)
	default:
		m.Nickname = req.Nickname
		reply = proto.Response{Status: proto.StatusSuccess, Nickname: req.Nickname}
	}
	h.mu.Unlock()

	sink.Send(proto.EventNickname, reply)
}

func (h *Hub) status(sink Sink, env proto.Envelope) {
	var req proto.StatusRequest
	if !decode(sink, env, &req, func() string { return req.UID }) {
		return
	}

	h.mu.Lock()
	m, registered := h.memberLocked(req.UID)
	var reply proto.Response
	if registered {
		joined := m.Room
		if joined == "" {
			joined = proto.NoRoom
		}
		reply = proto.Response{
			Status: proto.StatusSuccess,
			Detail: &proto.StatusDetail{Nickname: m.Nickname, Joined: joined},
		}
	} else {
		reply = proto.Failure(MsgNotRegistered)
	}
	h.mu.Unlock()

	sink.Send(proto.EventStatus, reply)
}
