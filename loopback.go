package ballroom

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrChannelClosed = errors.New("channel closed")

// LoopbackHub is an in-process room server. Frames still go through a codec
// so both ends see exactly what a relay would deliver.
type LoopbackHub struct {
	Codec Codec

	mu     sync.Mutex
	nextID int
	rooms  map[string]map[string]*loopbackChannel
}

func NewLoopbackHub(c Codec) *LoopbackHub {
	if c == nil {
		c = JSONCodec{}
	}
	return &LoopbackHub{Codec: c, rooms: map[string]map[string]*loopbackChannel{}}
}

type loopbackChannel struct {
	hub     *LoopbackHub
	id      string
	room    string
	deliver func(Envelope)
	lost    func(error)
	closed  bool
}

// Dial joins room. The new peer is welcomed and told about everyone already
// present; everyone else hears that it joined.
func (h *LoopbackHub) Dial(ctx context.Context, room string, deliver func(Envelope), lost func(error)) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	room = SanitizeRoom(room)

	h.mu.Lock()
	h.nextID++
	ch := &loopbackChannel{hub: h, id: fmt.Sprintf("loop-%d", h.nextID), room: room, deliver: deliver, lost: lost}
	members := h.rooms[room]
	if members == nil {
		members = map[string]*loopbackChannel{}
		h.rooms[room] = members
	}
	existing := sortedMembers(members)
	members[ch.id] = ch
	h.mu.Unlock()

	h.send(ch, "", Welcome{Peer: ch.id})
	for _, other := range existing {
		h.send(ch, "", PeerJoin{Peer: other.id})
		h.send(other, "", PeerJoin{Peer: ch.id})
	}
	return ch, nil
}

func sortedMembers(m map[string]*loopbackChannel) []*loopbackChannel {
	out := make([]*loopbackChannel, 0, len(m))
	for _, ch := range m {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// send round-trips m through the codec before handing it to dst.
func (h *LoopbackHub) send(dst *loopbackChannel, from string, m Message) {
	b, err := EncodeEnvelope(h.Codec, Envelope{From: from, Msg: m})
	if err != nil {
		log.WithError(err).Warn("Loopback encode failed")
		return
	}
	env, err := DecodeEnvelope(h.Codec, b)
	if err != nil {
		log.WithError(err).Warn("Loopback decode failed")
		return
	}
	dst.deliver(env)
}

// Drop disconnects peer as if its transport failed.
func (h *LoopbackHub) Drop(peer string, err error) {
	h.mu.Lock()
	var target *loopbackChannel
	for _, members := range h.rooms {
		if ch, ok := members[peer]; ok {
			target = ch
		}
	}
	h.mu.Unlock()
	if target == nil {
		return
	}
	target.leave()
	target.lost(err)
}

func (ch *loopbackChannel) Mode() DeliveryMode { return ModeLoopback }

func (ch *loopbackChannel) Publish(to string, m Message) {
	h := ch.hub
	h.mu.Lock()
	if ch.closed {
		h.mu.Unlock()
		return
	}
	var targets []*loopbackChannel
	for id, other := range h.rooms[ch.room] {
		if id == ch.id || (to != "" && id != to) {
			continue
		}
		targets = append(targets, other)
	}
	h.mu.Unlock()

	for _, dst := range targets {
		h.send(dst, ch.id, m)
	}
}

func (ch *loopbackChannel) Close() error {
	if !ch.leave() {
		return ErrChannelClosed
	}
	return nil
}

func (ch *loopbackChannel) leave() bool {
	h := ch.hub
	h.mu.Lock()
	if ch.closed {
		h.mu.Unlock()
		return false
	}
	ch.closed = true
	members := h.rooms[ch.room]
	delete(members, ch.id)
	if len(members) == 0 {
		delete(h.rooms, ch.room)
	}
	rest := sortedMembers(members)
	h.mu.Unlock()

	for _, other := range rest {
		h.send(other, "", PeerLeave{Peer: ch.id})
	}
	return true
}
