package ballroom

// MailboxMessage is anything dispatched through a Mailbox.
type MailboxMessage interface {
	Type() string
}

// Mailbox delivers notifications synchronously on the simulation goroutine.
type Mailbox struct {
	listeners map[string][]func(MailboxMessage)
}

func (m *Mailbox) Listen(kind string, fn func(MailboxMessage)) {
	if m.listeners == nil {
		m.listeners = map[string][]func(MailboxMessage){}
	}
	m.listeners[kind] = append(m.listeners[kind], fn)
}

func (m *Mailbox) Dispatch(msg MailboxMessage) {
	for _, fn := range m.listeners[msg.Type()] {
		fn(msg)
	}
}

type PeerJoinedMessage struct {
	Entity *RemoteEntity
}

func (PeerJoinedMessage) Type() string { return "PeerJoinedMessage" }

// PeerRenamedMessage asks the renderer to refresh a peer's label.
type PeerRenamedMessage struct {
	Entity  *RemoteEntity
	OldName string
}

func (PeerRenamedMessage) Type() string { return "PeerRenamedMessage" }

type PeerLeftMessage struct {
	Entity *RemoteEntity
	Reason LeaveReason
}

func (PeerLeftMessage) Type() string { return "PeerLeftMessage" }

type ConnStateMessage struct {
	Old, State ConnState
}

func (ConnStateMessage) Type() string { return "ConnStateMessage" }

// PaintMessage carries a paint dab received from a peer.
type PaintMessage struct {
	Paint Paint
}

func (PaintMessage) Type() string { return "PaintMessage" }
