package ballroom

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// BotScene runs a handful of scripted sessions in one room.
type BotScene struct {
	Config   Config
	Sessions []*Session
}

func NewBotScene(cfg Config, seed int64) *BotScene {
	bs := &BotScene{Config: cfg}
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < cfg.Bots; i++ {
		p := NewJoinParams(fmt.Sprintf("Bot-%d", i+1), cfg.Room)
		s := NewSession(p, cfg.Tuning)
		s.AddSystem(&BotAISystem{S: s, Rand: rand.New(rand.NewSource(r.Int63()))})
		bs.Sessions = append(bs.Sessions, s)
	}
	return bs
}

// Connect dials every bot, each with its own timeout.
func (bs *BotScene) Connect(ctx context.Context, d Dialer) {
	for _, s := range bs.Sessions {
		dctx, cancel := context.WithTimeout(ctx, bs.Config.DialTimeout)
		if err := s.Connect(dctx, d); err != nil {
			log.WithError(err).WithField("bot", s.Name).Warn("Bot running offline")
		}
		cancel()
	}
}

func (bs *BotScene) Tick(dt float32) {
	for _, s := range bs.Sessions {
		s.Tick(dt)
	}
}

// Run ticks at the configured rate until ctx is done, then closes every bot.
func (bs *BotScene) Run(ctx context.Context) {
	hz := bs.Config.TickHz
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			for _, s := range bs.Sessions {
				s.Close()
			}
			return
		case now := <-ticker.C:
			bs.Tick(float32(now.Sub(last).Seconds()))
			last = now
		}
	}
}
