package ballroom

import "github.com/EngoEngine/ecs"

// PaintSystem stamps the local ball's trail onto the canvas every tick and
// applies dabs received from peers.
type PaintSystem struct {
	S *Session

	Local, Remote int
}

func (*PaintSystem) Priority() int { return 75 }

func (ps *PaintSystem) New(w *ecs.World) {
	ps.S.Mailbox.Listen(PaintMessage{}.Type(), func(msg MailboxMessage) {
		pm, ok := msg.(PaintMessage)
		if !ok || ps.S.Canvas == nil {
			return
		}
		if ps.S.Canvas.Paint(pm.Paint.X, pm.Paint.Z, pm.Paint.Mode) {
			ps.Remote++
		}
	})
}

func (*PaintSystem) Remove(ecs.BasicEntity) {}
func (ps *PaintSystem) Update(dt float32) {
	s := ps.S
	if s.Canvas == nil {
		return
	}
	if s.Canvas.Paint(s.Body.Position[0], s.Body.Position[2], s.PaintMode) {
		ps.Local++
	}
}
