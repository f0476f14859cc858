package ballroom

import "github.com/EngoEngine/ecs"

// PumpSystem applies everything the transport queued since the last tick:
// connection results first, then inbound envelopes, then staleness.
type PumpSystem struct {
	S *Session
}

func (*PumpSystem) Priority() int          { return 100 }
func (*PumpSystem) Remove(ecs.BasicEntity) {}
func (ps *PumpSystem) Update(dt float32) {
	s := ps.S
	for drained := false; !drained; {
		select {
		case ev := <-s.control:
			if ev.lost {
				s.disconnected(ev.err)
			} else {
				s.connected(ev.channel, ev.err)
			}
		default:
			drained = true
		}
	}

	// Envelopes that arrive while we drain wait for the next tick. Offline is
	// final, so anything still queued then is discarded.
	offline := s.Conn.State().Phase == Offline
	for n := len(s.inbox); n > 0; n-- {
		env := <-s.inbox
		if !offline {
			ps.handle(env)
		}
	}

	s.Peers.Sweep(s.Clock.Now())
}

func (ps *PumpSystem) handle(env Envelope) {
	s := ps.S
	switch m := env.Msg.(type) {
	case Snapshot:
		s.Peers.Apply(env.From, m, s.Clock.Now())
	case Paint:
		if m.SessionID == s.SessionID {
			return
		}
		s.Mailbox.Dispatch(PaintMessage{Paint: m})
	case PeerJoin:
		if m.Peer == s.TransportID {
			return
		}
		if s.Conn.State().Phase != Online {
			s.greet = append(s.greet, m.Peer)
			return
		}
		log.WithField("peer", m.Peer).Debug("Greeting new peer")
		s.publish(m.Peer, s.Snapshot(true))
	case PeerLeave:
		s.Peers.Evict(m.Peer, LeaveExplicit)
	case Welcome:
		s.TransportID = m.Peer
	}
}
