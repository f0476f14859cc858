package ballroom

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// PlayerInput is the set of held keys. Jump and PaintToggle are levels; the
// integrator only sees their rising edges.
type PlayerInput struct {
	Forward     bool
	Back        bool
	Left        bool
	Right       bool
	Jump        bool
	PaintToggle bool

	jumpWasDown   bool
	toggleWasDown bool
}

// Direction returns the normalized planar (x, z) direction of the held keys.
// Forward is -z.
func (p *PlayerInput) Direction() mgl32.Vec2 {
	var dir mgl32.Vec2
	if p.Forward {
		dir[1] -= 1
	}
	if p.Back {
		dir[1] += 1
	}
	if p.Left {
		dir[0] -= 1
	}
	if p.Right {
		dir[0] += 1
	}
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return dir
}

// Sample consumes the edges of this tick and returns the integrator input
// together with whether the paint mode should flip.
func (p *PlayerInput) Sample() (StepInput, bool) {
	in := StepInput{Dir: p.Direction(), Jump: p.Jump && !p.jumpWasDown}
	toggle := p.PaintToggle && !p.toggleWasDown
	p.jumpWasDown = p.Jump
	p.toggleWasDown = p.PaintToggle
	return in, toggle
}

// SetKeys replaces the held set from a string of key letters, e.g. "wd" for
// forward-right, "j" for jump and "p" for the paint toggle.
func (p *PlayerInput) SetKeys(keys string) {
	keys = strings.ToLower(keys)
	p.Forward = strings.ContainsRune(keys, 'w')
	p.Back = strings.ContainsRune(keys, 's')
	p.Left = strings.ContainsRune(keys, 'a')
	p.Right = strings.ContainsRune(keys, 'd')
	p.Jump = strings.ContainsRune(keys, 'j') || strings.ContainsRune(keys, ' ')
	p.PaintToggle = strings.ContainsRune(keys, 'p')
}
