package ballroom

import "fmt"

type Phase int

const (
	Connecting Phase = iota
	Online
	Offline
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case Online:
		return "online"
	case Offline:
		return "offline"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// DeliveryMode says which kind of channel carries an online session.
type DeliveryMode string

const (
	ModeRelay    DeliveryMode = "relay"
	ModeLoopback DeliveryMode = "loopback"
)

type ConnState struct {
	Phase Phase
	Mode  DeliveryMode
}

func (c ConnState) String() string {
	if c.Phase == Online && c.Mode != "" {
		return fmt.Sprintf("online (%s)", c.Mode)
	}
	return c.Phase.String()
}

// Connection is the session's connection state machine. It only moves
// forward: connecting -> online -> offline, or connecting -> offline.
// Offline is terminal.
type Connection struct {
	OnChange func(old, cur ConnState)

	state ConnState
	err   error
}

func (c *Connection) State() ConnState { return c.state }

// Err is the failure that took the session offline, if any.
func (c *Connection) Err() error { return c.err }

func (c *Connection) Established(mode DeliveryMode) bool {
	if c.state.Phase != Connecting {
		return false
	}
	c.set(ConnState{Phase: Online, Mode: mode})
	return true
}

func (c *Connection) Fail(err error) bool {
	if c.state.Phase == Offline {
		return false
	}
	c.err = err
	c.set(ConnState{Phase: Offline})
	return true
}

func (c *Connection) set(s ConnState) {
	old := c.state
	c.state = s
	if c.OnChange != nil {
		c.OnChange(old, s)
	}
}
