package ballroom

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"sync/atomic"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

// Session is one participant: the local ball, the peers it has seen and the
// channel to the room. Everything except deliver and the connect goroutine
// runs on the goroutine that calls Tick.
type Session struct {
	JoinParams

	Tuning Tuning
	World  *World
	Clock  Clock

	Body      LocalBody
	Input     PlayerInput
	PaintMode PaintMode

	Peers   *PeerRegistry
	Conn    Connection
	Canvas  *PaintCanvas
	Mailbox Mailbox

	// TransportID is the id the relay knows us by, set on welcome.
	TransportID string

	Pump      PumpSystem
	Bodies    BodySystem
	Reconcile ClientPredictionSystem
	Painter   PaintSystem
	Broadcast BroadcastSystem
	Hud       HudSystem

	systems ecs.World
	channel Channel
	// greet holds peers that joined before we were online.
	greet   []string
	inbox   chan Envelope
	control chan controlEvent
	dropped atomic.Uint64
	log     *logrus.Entry
}

type controlEvent struct {
	channel Channel
	err     error
	lost    bool
}

func NewSession(p JoinParams, t Tuning) *Session {
	s := &Session{
		JoinParams: p,
		Tuning:     t,
		World:      DefaultWorld(),
		Clock:      SystemClock{},
		Body:       NewLocalBody(t),
		PaintMode:  PaintDraw,
		channel:    offlineChannel{},
		inbox:      make(chan Envelope, InboxSize),
		control:    make(chan controlEvent, 4),
		log:        log.WithFields(logrus.Fields{"session": p.SessionID, "room": p.Room}),
	}
	s.Peers = NewPeerRegistry(p.SessionID, t)
	s.Peers.OnJoin = func(e *RemoteEntity) {
		s.Reconcile.Add(e)
		s.Mailbox.Dispatch(PeerJoinedMessage{Entity: e})
	}
	s.Peers.OnRename = func(e *RemoteEntity, old string) {
		s.Mailbox.Dispatch(PeerRenamedMessage{Entity: e, OldName: old})
	}
	s.Peers.OnLeave = func(e *RemoteEntity, reason LeaveReason) {
		s.systems.RemoveEntity(e.BasicEntity)
		s.Mailbox.Dispatch(PeerLeftMessage{Entity: e, Reason: reason})
	}
	s.Conn.OnChange = func(old, cur ConnState) {
		s.log.WithField("state", cur).Info("Connection state changed")
		s.Mailbox.Dispatch(ConnStateMessage{Old: old, State: cur})
	}

	s.Pump = PumpSystem{S: s}
	s.Bodies = BodySystem{S: s}
	s.Reconcile = ClientPredictionSystem{S: s}
	s.Painter = PaintSystem{S: s}
	s.Broadcast = NewBroadcastSystem(s)
	s.Hud = HudSystem{S: s}

	s.systems.AddSystem(&s.Pump)
	s.systems.AddSystem(&s.Bodies)
	s.systems.AddSystem(&s.Reconcile)
	s.systems.AddSystem(&s.Painter)
	s.systems.AddSystem(&s.Broadcast)
	s.systems.AddSystem(&s.Hud)
	return s
}

// AddSystem adds an extra system, e.g. a bot driver, to the tick.
func (s *Session) AddSystem(sys ecs.System) {
	s.systems.AddSystem(sys)
}

// Tick advances the session by dt seconds, clamped to the integrator limit.
func (s *Session) Tick(dt float32) {
	if dt > s.Tuning.MaxDt {
		dt = s.Tuning.MaxDt
	}
	if dt < 0 {
		dt = 0
	}
	s.systems.Update(dt)
}

// Connect dials synchronously. A failure takes the session offline for good.
func (s *Session) Connect(ctx context.Context, d Dialer) error {
	ch, err := d.Dial(ctx, s.Room, s.deliver, s.lost)
	s.connected(ch, err)
	return err
}

// ConnectAsync dials in the background; the result is applied on a later tick.
func (s *Session) ConnectAsync(ctx context.Context, d Dialer) {
	go func() {
		ch, err := d.Dial(ctx, s.Room, s.deliver, s.lost)
		s.control <- controlEvent{channel: ch, err: err}
	}()
}

func (s *Session) connected(ch Channel, err error) {
	if err != nil {
		s.log.WithError(err).Warn("Realtime disabled, continuing single-player")
		s.Conn.Fail(err)
		return
	}
	if !s.Conn.Established(ch.Mode()) {
		s.log.Debug("Discarding channel that arrived after going offline")
		ch.Close()
		return
	}
	s.channel = ch
	for _, peer := range s.greet {
		s.publish(peer, s.Snapshot(true))
	}
	s.greet = nil
}

func (s *Session) disconnected(err error) {
	if !s.Conn.Fail(err) {
		return
	}
	s.log.WithError(err).Warn("Lost realtime channel")
	s.channel.Close()
	s.channel = offlineChannel{}
	s.greet = nil
	s.Peers.Clear(LeaveOffline)
}

// deliver queues an inbound envelope for the next tick. When the inbox is full
// the oldest envelope is dropped.
func (s *Session) deliver(env Envelope) {
	for {
		select {
		case s.inbox <- env:
			return
		default:
		}
		select {
		case <-s.inbox:
			s.dropped.Add(1)
		default:
		}
	}
}

func (s *Session) lost(err error) {
	select {
	case s.control <- controlEvent{err: err, lost: true}:
	default:
	}
}

// Dropped counts inbound envelopes discarded because the inbox was full.
func (s *Session) Dropped() uint64 { return s.dropped.Load() }

func (s *Session) publish(to string, m Message) {
	s.channel.Publish(to, m)
}

// Close leaves the room for good. The session goes offline and keeps
// simulating locally; a dial still in flight is discarded when it lands.
func (s *Session) Close() error {
	err := s.channel.Close()
	s.channel = offlineChannel{}
	s.greet = nil
	s.Conn.Fail(ErrChannelClosed)
	s.Peers.Clear(LeaveOffline)
	return err
}

// Snapshot describes the local ball as it would be broadcast now.
func (s *Session) Snapshot(hello bool) Snapshot {
	return Snapshot{
		Hello:       hello,
		SessionID:   s.SessionID,
		Name:        s.Name,
		Position:    s.Body.Position,
		Velocity:    s.Body.Velocity,
		Orientation: s.Body.Orientation,
		Timestamp:   s.Clock.Now().UnixMilli(),
		Present:     FieldsAll,
	}
}

func (s *Session) nowMs() int64 { return s.Clock.Now().UnixMilli() }

// Transform is what a renderer needs to draw one ball.
type Transform struct {
	ID          string
	Name        string
	Color       color.RGBA
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Local       bool
}

// Transforms returns the local ball first, then every peer's displayed
// transform ordered by peer id.
func (s *Session) Transforms() []Transform {
	out := make([]Transform, 0, s.Peers.Len()+1)
	out = append(out, Transform{
		ID:          s.SessionID,
		Name:        s.Name,
		Color:       ColorFromID(s.SessionID),
		Position:    s.Body.Position,
		Orientation: s.Body.Orientation,
		Local:       true,
	})
	for _, e := range s.Peers.Peers() {
		out = append(out, Transform{
			ID:          e.SessionID,
			Name:        e.Name,
			Color:       e.Color,
			Position:    e.DisplayPos,
			Orientation: e.DisplayRot,
		})
	}
	return out
}

// TogglePaintMode flips between draw and erase.
func (s *Session) TogglePaintMode() {
	if s.PaintMode == PaintDraw {
		s.PaintMode = PaintErase
	} else {
		s.PaintMode = PaintDraw
	}
	s.log.Debugf("Paint mode %s", s.PaintMode)
}

// Status is the one-line badge shown to the player.
func (s *Session) Status() string {
	return fmt.Sprintf("WASD Ball Physics | %s (%s) | %s (P) | Room %s | %s | Peers %d",
		s.Name, s.SessionID, strings.ToUpper(string(s.PaintMode)), s.Room, s.Conn.State(), s.Peers.Len())
}
