package ballroom

import "github.com/EngoEngine/ecs"

// Accumulator fires once its accumulated time exceeds Period, then starts
// again from zero. Leftover time is discarded so a long frame never causes
// a burst.
type Accumulator struct {
	Period  float32
	elapsed float32
}

func (a *Accumulator) Advance(dt float32) bool {
	a.elapsed += dt
	if a.elapsed > a.Period {
		a.elapsed = 0
		return true
	}
	return false
}

// BroadcastSystem decides when the local ball's state, hello heartbeat and
// paint dabs go out.
type BroadcastSystem struct {
	S *Session

	State Accumulator
	Hello Accumulator
	Paint Accumulator

	Sent map[MsgKind]int
}

func NewBroadcastSystem(s *Session) BroadcastSystem {
	return BroadcastSystem{
		S:     s,
		State: Accumulator{Period: s.Tuning.StatePeriod},
		Hello: Accumulator{Period: s.Tuning.HelloPeriod},
		Paint: Accumulator{Period: s.Tuning.PaintPeriod},
		Sent:  map[MsgKind]int{},
	}
}

func (*BroadcastSystem) Priority() int          { return 70 }
func (*BroadcastSystem) Remove(ecs.BasicEntity) {}
func (bs *BroadcastSystem) Update(dt float32) {
	s := bs.S
	online := s.Conn.State().Phase == Online

	if bs.State.Advance(dt) && online {
		bs.send(s.Snapshot(false))
	}
	if bs.Hello.Advance(dt) && online {
		bs.send(s.Snapshot(true))
	}
	if bs.Paint.Advance(dt) && online {
		x, z := s.Body.Position[0], s.Body.Position[2]
		if s.World.InBounds(x, z) {
			bs.send(Paint{SessionID: s.SessionID, X: x, Z: z, Mode: s.PaintMode})
		}
	}
}

func (bs *BroadcastSystem) send(m Message) {
	bs.S.publish("", m)
	bs.Sent[m.Kind()]++
}
