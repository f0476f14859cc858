package ballroom

import "github.com/EngoEngine/ecs"

// HudSystem keeps the status badge current and logs it whenever it changes.
type HudSystem struct {
	S *Session

	// OnChange, when set, receives each new badge instead of the log.
	OnChange func(status string)

	Text string
}

func (*HudSystem) Priority() int          { return 10 }
func (*HudSystem) Remove(ecs.BasicEntity) {}
func (hs *HudSystem) Update(dt float32) {
	text := hs.S.Status()
	if text == hs.Text {
		return
	}
	hs.Text = text
	if hs.OnChange != nil {
		hs.OnChange(text)
		return
	}
	hs.S.log.Info(text)
}
