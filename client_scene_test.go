package ballroom

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func loopbackPair(t *testing.T, codec Codec) (*LoopbackHub, *Session, *Session, *fakeClock) {
	t.Helper()
	hub := NewLoopbackHub(codec)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	a := NewSession(JoinParams{SessionID: "AAAAAA", Name: "Ada", Room: "lobby"}, DefaultTuning())
	b := NewSession(JoinParams{SessionID: "BBBBBB", Name: "Bo", Room: "lobby"}, DefaultTuning())
	for _, s := range []*Session{a, b} {
		s.Clock = clock
		if err := s.Connect(context.Background(), hub); err != nil {
			t.Fatalf("connect %s: %v", s.Name, err)
		}
	}
	return hub, a, b, clock
}

func tickAll(clock *fakeClock, n int, sessions ...*Session) {
	for i := 0; i < n; i++ {
		clock.Advance(time.Second / 60)
		for _, s := range sessions {
			s.Tick(1.0 / 60)
		}
	}
}

func TestSessionsDiscoverEachOther(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			_, a, b, clock := loopbackPair(t, codec)
			var joined []string
			a.Mailbox.Listen(PeerJoinedMessage{}.Type(), func(msg MailboxMessage) {
				joined = append(joined, msg.(PeerJoinedMessage).Entity.Name)
			})

			tickAll(clock, 2, a, b)

			if a.Peers.Len() != 1 || b.Peers.Len() != 1 {
				t.Fatalf("peers: a=%d b=%d", a.Peers.Len(), b.Peers.Len())
			}
			if len(joined) != 1 || joined[0] != "Bo" {
				t.Errorf("join notifications = %v", joined)
			}
			if a.TransportID == "" || a.TransportID == b.TransportID {
				t.Errorf("transport ids %q %q", a.TransportID, b.TransportID)
			}
			want := "WASD Ball Physics | Ada (AAAAAA) | DRAW (P) | Room lobby | online (loopback) | Peers 1"
			if got := a.Status(); got != want {
				t.Errorf("status = %q", got)
			}
		})
	}
}

func TestSessionFollowsRemoteMotion(t *testing.T) {
	_, a, b, clock := loopbackPair(t, JSONCodec{})
	b.Input.SetKeys("d")
	tickAll(clock, 90, a, b)

	e, ok := a.Peers.Get(b.TransportID)
	if !ok {
		t.Fatalf("a does not track b")
	}
	if e.DisplayPos.X() <= 1 {
		t.Errorf("display did not follow b: %v", e.DisplayPos)
	}
	if d := e.DisplayPos.Sub(b.Body.Position).Len(); d > 0.5 {
		t.Errorf("display %v is %v away from %v", e.DisplayPos, d, b.Body.Position)
	}

	tr := a.Transforms()
	if len(tr) != 2 || !tr[0].Local || tr[1].ID != "BBBBBB" || tr[1].Position != e.DisplayPos {
		t.Errorf("transforms = %+v", tr)
	}
}

func TestSessionPeerLeaves(t *testing.T) {
	_, a, b, clock := loopbackPair(t, JSONCodec{})
	tickAll(clock, 2, a, b)

	var reasons []LeaveReason
	a.Mailbox.Listen(PeerLeftMessage{}.Type(), func(msg MailboxMessage) {
		reasons = append(reasons, msg.(PeerLeftMessage).Reason)
	})
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	tickAll(clock, 1, a)

	if a.Peers.Len() != 0 || len(a.Reconcile.Entities) != 0 {
		t.Errorf("peer still tracked: %d / %d", a.Peers.Len(), len(a.Reconcile.Entities))
	}
	if len(reasons) != 1 || reasons[0] != LeaveExplicit {
		t.Errorf("reasons = %v", reasons)
	}
}

func TestSessionEvictsStalePeer(t *testing.T) {
	_, a, b, clock := loopbackPair(t, JSONCodec{})
	tickAll(clock, 2, a, b)

	clock.Advance(a.Tuning.StaleTimeout)
	a.Tick(1.0 / 60)
	if a.Peers.Len() != 1 {
		t.Fatalf("evicted at exactly the timeout")
	}
	clock.Advance(time.Millisecond)
	a.Tick(1.0 / 60)
	if a.Peers.Len() != 0 {
		t.Errorf("silent peer not evicted")
	}
}

func TestSessionChannelLost(t *testing.T) {
	hub, a, b, clock := loopbackPair(t, JSONCodec{})
	tickAll(clock, 2, a, b)

	var states []ConnState
	b.Mailbox.Listen(ConnStateMessage{}.Type(), func(msg MailboxMessage) {
		states = append(states, msg.(ConnStateMessage).State)
	})
	hub.Drop(b.TransportID, errors.New("network gone"))
	start := b.Body.Position
	b.Input.SetKeys("w")
	tickAll(clock, 10, a, b)

	if b.Conn.State().Phase != Offline || len(states) != 1 {
		t.Fatalf("b state %v, notifications %v", b.Conn.State(), states)
	}
	if b.Peers.Len() != 0 {
		t.Errorf("offline session still tracks %d peers", b.Peers.Len())
	}
	if a.Peers.Len() != 0 {
		t.Errorf("a still tracks the dropped peer")
	}
	if b.Body.Position.Z() >= start.Z() {
		t.Errorf("local simulation stopped offline: %v -> %v", start, b.Body.Position)
	}
}

func TestSessionDialFailure(t *testing.T) {
	s := NewSession(JoinParams{SessionID: "AAAAAA", Name: "Ada", Room: "lobby"}, DefaultTuning())
	if err := s.Connect(context.Background(), OfflineDialer{}); !errors.Is(err, ErrOffline) {
		t.Fatalf("err = %v", err)
	}
	if s.Conn.State().Phase != Offline {
		t.Errorf("state = %v", s.Conn.State())
	}
	s.Input.SetKeys("d")
	for i := 0; i < 30; i++ {
		s.Tick(1.0 / 60)
	}
	if s.Body.Position.X() <= 0 {
		t.Errorf("offline session did not move")
	}
}

func TestSessionConnectAsync(t *testing.T) {
	hub := NewLoopbackHub(nil)
	s := NewSession(JoinParams{SessionID: "AAAAAA", Name: "Ada", Room: "lobby"}, DefaultTuning())
	s.ConnectAsync(context.Background(), hub)

	deadline := time.Now().Add(2 * time.Second)
	for s.Conn.State().Phase == Connecting && time.Now().Before(deadline) {
		s.Tick(1.0 / 60)
		time.Sleep(time.Millisecond)
	}
	if got := s.Conn.State(); got.Phase != Online || got.Mode != ModeLoopback {
		t.Errorf("state = %v", got)
	}
}

func TestSessionInboxDropsOldest(t *testing.T) {
	s := NewSession(JoinParams{SessionID: "AAAAAA", Name: "Ada", Room: "lobby"}, DefaultTuning())
	for i := 0; i < InboxSize+10; i++ {
		s.deliver(Envelope{From: fmt.Sprintf("p%d", i), Msg: PeerLeave{Peer: "x"}})
	}
	if s.Dropped() != 10 {
		t.Errorf("dropped = %d, want 10", s.Dropped())
	}
	if first := <-s.inbox; first.From != "p10" {
		t.Errorf("oldest kept envelope is %s, want p10", first.From)
	}
}

func TestSessionTickClampsDt(t *testing.T) {
	a := NewSession(JoinParams{SessionID: "AAAAAA"}, DefaultTuning())
	b := NewSession(JoinParams{SessionID: "BBBBBB"}, DefaultTuning())
	a.Input.SetKeys("d")
	b.Input.SetKeys("d")
	a.Tick(2)
	b.Tick(a.Tuning.MaxDt)
	if !a.Body.Position.ApproxEqual(b.Body.Position) {
		t.Errorf("long frame not clamped: %v vs %v", a.Body.Position, b.Body.Position)
	}
}

func TestSessionPaintToggleAndRemotePaint(t *testing.T) {
	_, a, b, clock := loopbackPair(t, JSONCodec{})
	a.Canvas = NewPaintCanvas(64, a.World.HalfExtent)
	a.Canvas.BrushRadius = 2

	b.Input.SetKeys("p")
	tickAll(clock, 12, a, b)
	if b.PaintMode != PaintErase {
		t.Fatalf("held toggle should flip once, mode %s", b.PaintMode)
	}
	if a.Painter.Remote == 0 {
		t.Errorf("no remote dabs applied")
	}
	if a.Painter.Local == 0 {
		t.Errorf("no local dabs applied")
	}
}

func TestSessionCloseGoesOffline(t *testing.T) {
	_, a, b, clock := loopbackPair(t, JSONCodec{})
	tickAll(clock, 2, a, b)

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	sent := a.Broadcast.Sent[MsgState]
	a.Input.SetKeys("d")
	tickAll(clock, 30, a, b)

	if got := a.Conn.State(); got.Phase != Offline {
		t.Errorf("state after close = %v", got)
	}
	if a.Peers.Len() != 0 || len(a.Reconcile.Entities) != 0 {
		t.Errorf("closed session still tracks %d peers", a.Peers.Len())
	}
	if a.Broadcast.Sent[MsgState] != sent {
		t.Errorf("closed session kept broadcasting: %d -> %d", sent, a.Broadcast.Sent[MsgState])
	}
	if a.Body.Position.X() <= 0 {
		t.Errorf("local simulation stopped after close")
	}
	if b.Peers.Len() != 0 {
		t.Errorf("b still tracks a")
	}
	want := "WASD Ball Physics | Ada (AAAAAA) | DRAW (P) | Room lobby | offline | Peers 0"
	if got := a.Status(); got != want {
		t.Errorf("status = %q", got)
	}
}

func TestSessionDiscardsLateChannel(t *testing.T) {
	s := NewSession(JoinParams{SessionID: "AAAAAA", Name: "Ada", Room: "lobby"}, DefaultTuning())
	release := make(chan struct{})
	rc := &recordingChannel{}
	s.ConnectAsync(context.Background(), dialerFunc(func(context.Context, string, func(Envelope), func(error)) (Channel, error) {
		<-release
		return rc, nil
	}))
	s.Close()
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for !rc.closed && time.Now().Before(deadline) {
		s.Tick(1.0 / 60)
		time.Sleep(time.Millisecond)
	}
	if !rc.closed {
		t.Fatalf("late channel was not closed")
	}
	if got := s.Conn.State(); got.Phase != Offline {
		t.Errorf("state = %v", got)
	}
	if n := len(rc.sent); n != 0 {
		t.Errorf("published %d messages on a discarded channel", n)
	}
}

func TestSessionGreetsPeersAnnouncedBeforeOnline(t *testing.T) {
	s := NewSession(JoinParams{SessionID: "AAAAAA", Name: "Ada", Room: "lobby"}, DefaultTuning())
	s.deliver(Envelope{Msg: Welcome{Peer: "me"}})
	s.deliver(Envelope{Msg: PeerJoin{Peer: "early"}})
	s.Tick(1.0 / 60)

	rc := &recordingChannel{}
	err := s.Connect(context.Background(), dialerFunc(func(context.Context, string, func(Envelope), func(error)) (Channel, error) {
		return rc, nil
	}))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(rc.sent) == 0 {
		t.Fatalf("no greeting sent once online")
	}
	hello, ok := rc.sent[0].Msg.(Snapshot)
	if rc.sent[0].To != "early" || !ok || !hello.Hello {
		t.Errorf("first message = %+v", rc.sent[0])
	}
}
