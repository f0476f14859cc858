package ballroom

import (
	"math/rand"
	"time"

	"github.com/EngoEngine/ecs"
)

// BotAISystem holds keys for a session the way a wandering player would:
// roll in a random direction, hop now and then, and toggle the brush.
type BotAISystem struct {
	S    *Session
	Rand *rand.Rand

	NextTurnAt time.Time
	NextHopAt  time.Time
	keys       string
}

var botHeadings = []string{"w", "wd", "d", "sd", "s", "sa", "a", "wa"}

func (*BotAISystem) Priority() int          { return 95 }
func (*BotAISystem) Remove(ecs.BasicEntity) {}
func (bas *BotAISystem) Update(dt float32) {
	if bas.Rand == nil {
		bas.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := bas.S.Clock.Now()

	if now.After(bas.NextTurnAt) {
		bas.NextTurnAt = now.Add(time.Duration(1+bas.Rand.Intn(4)) * time.Second)
		bas.keys = botHeadings[bas.Rand.Intn(len(botHeadings))]
		log.WithField("bot", bas.S.SessionID).Debugf("Heading %q", bas.keys)
	}

	keys := bas.keys
	if now.After(bas.NextHopAt) {
		bas.NextHopAt = now.Add(time.Duration(2+bas.Rand.Intn(6)) * time.Second)
		keys += "j"
		if bas.Rand.Intn(4) == 0 {
			keys += "p"
		}
	}
	bas.S.Input.SetKeys(keys)
}
