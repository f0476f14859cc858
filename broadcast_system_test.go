package ballroom

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingChannel struct {
	sent   []Envelope
	closed bool
}

func (rc *recordingChannel) Publish(to string, m Message) {
	rc.sent = append(rc.sent, Envelope{To: to, Msg: m})
}
func (rc *recordingChannel) Mode() DeliveryMode { return ModeRelay }
func (rc *recordingChannel) Close() error {
	rc.closed = true
	return nil
}

func (rc *recordingChannel) count(kind MsgKind) int {
	n := 0
	for _, env := range rc.sent {
		if env.Msg.Kind() == kind {
			n++
		}
	}
	return n
}

type dialerFunc func(ctx context.Context, room string, deliver func(Envelope), lost func(error)) (Channel, error)

func (f dialerFunc) Dial(ctx context.Context, room string, deliver func(Envelope), lost func(error)) (Channel, error) {
	return f(ctx, room, deliver, lost)
}

func recordingSession(t *testing.T) (*Session, *recordingChannel, *fakeClock) {
	t.Helper()
	s := NewSession(JoinParams{SessionID: "AAAAAA", Name: "Ada", Room: "lobby"}, DefaultTuning())
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	s.Clock = clock
	rc := &recordingChannel{}
	err := s.Connect(context.Background(), dialerFunc(func(context.Context, string, func(Envelope), func(error)) (Channel, error) {
		return rc, nil
	}))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return s, rc, clock
}

func TestAccumulator(t *testing.T) {
	var tests = []struct {
		period float32
		dt     float32
		ticks  int
		fires  int
	}{
		{0.05, 0.02, 30, 10},
		{0.05, 0.05, 10, 5},
		{0.05, 1, 5, 5},
		{2, 0.3, 70, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("period %v dt %v", tt.period, tt.dt), func(t *testing.T) {
			a := Accumulator{Period: tt.period}
			fires := 0
			for i := 0; i < tt.ticks; i++ {
				if a.Advance(tt.dt) {
					fires++
				}
			}
			if fires != tt.fires {
				t.Errorf("fired %d times, want %d", fires, tt.fires)
			}
		})
	}
}

func TestBroadcastCadence(t *testing.T) {
	s, rc, clock := recordingSession(t)
	for i := 0; i < 150; i++ {
		clock.Advance(20 * time.Millisecond)
		s.Tick(0.02)
	}
	// 3 s of 20 ms frames: state and paint every third frame, one hello.
	if got := rc.count(MsgState); got != 50 {
		t.Errorf("state messages = %d, want 50", got)
	}
	if got := rc.count(MsgHello); got != 1 {
		t.Errorf("hello messages = %d, want 1", got)
	}
	if got := rc.count(MsgPaint); got != 50 {
		t.Errorf("paint messages = %d, want 50", got)
	}

	last := rc.sent[len(rc.sent)-1]
	if last.To != "" {
		t.Errorf("periodic message addressed to %q", last.To)
	}
	for _, env := range rc.sent {
		if snap, ok := env.Msg.(Snapshot); ok {
			if snap.SessionID != "AAAAAA" || snap.Name != "Ada" || snap.Present != FieldsAll {
				t.Fatalf("bad snapshot %+v", snap)
			}
		}
	}
}

func TestBroadcastSilentWhenNotOnline(t *testing.T) {
	s := NewSession(JoinParams{SessionID: "AAAAAA", Name: "Ada", Room: "lobby"}, DefaultTuning())
	rc := &recordingChannel{}
	s.channel = rc
	for i := 0; i < 30; i++ {
		s.Tick(0.02)
	}
	if len(rc.sent) != 0 {
		t.Errorf("sent %d messages while connecting", len(rc.sent))
	}
}

func TestTargetedHelloOnJoin(t *testing.T) {
	s, rc, _ := recordingSession(t)
	s.deliver(Envelope{Msg: PeerJoin{Peer: "p7"}})
	s.Tick(0.001)

	if len(rc.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(rc.sent))
	}
	env := rc.sent[0]
	snap, ok := env.Msg.(Snapshot)
	if env.To != "p7" || !ok || !snap.Hello {
		t.Errorf("got %+v, want hello to p7", env)
	}
}
