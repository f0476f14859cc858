package ballroom

import "github.com/EngoEngine/ecs"

// BodySystem samples the held keys and integrates the local ball.
type BodySystem struct {
	S *Session
}

func (*BodySystem) Priority() int          { return 90 }
func (*BodySystem) Remove(ecs.BasicEntity) {}
func (bs *BodySystem) Update(dt float32) {
	s := bs.S
	in, toggle := s.Input.Sample()
	if toggle {
		s.TogglePaintMode()
	}
	Integrate(&s.Body, in, dt, s.World, s.Tuning)
}
