package ballroom

import "github.com/EngoEngine/ecs"

// ClientPredictionSystem dead-reckons and smooths every remote entity once
// per tick.
type ClientPredictionSystem struct {
	S        *Session
	Entities []*RemoteEntity
}

func (*ClientPredictionSystem) Priority() int { return 80 }

func (cps *ClientPredictionSystem) Add(e *RemoteEntity) {
	cps.Entities = append(cps.Entities, e)
}

func (cps *ClientPredictionSystem) Remove(basic ecs.BasicEntity) {
	for i, e := range cps.Entities {
		if e.ID() == basic.ID() {
			cps.Entities = append(cps.Entities[:i], cps.Entities[i+1:]...)
			return
		}
	}
}

func (cps *ClientPredictionSystem) Update(dt float32) {
	now := cps.S.nowMs()
	for _, e := range cps.Entities {
		e.Reconcile(now, dt, cps.S.Tuning)
	}
}
