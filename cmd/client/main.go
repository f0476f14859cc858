package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ScottBrooks/ballroom"
	log "github.com/sirupsen/logrus"
)

// The client reads held keys from stdin, one line per change: "wd" rolls
// forward-right, "j" jumps, "p" toggles draw/erase, an empty line releases
// everything.
func main() {
	cfg, err := ballroom.LoadConfig("client", os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := ballroom.ConfigureLogging(cfg.LogLevel, cfg.LogColor); err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := ballroom.NewSession(ballroom.NewJoinParams(cfg.Name, cfg.Room), cfg.Tuning)
	s.Canvas = ballroom.NewPaintCanvas(ballroom.CanvasResolution, s.World.HalfExtent)

	dialer, bots := dialerFor(cfg)
	dctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	s.ConnectAsync(dctx, dialer)

	keys := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			keys <- sc.Text()
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(cfg.TickHz))
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			shutdown(cfg, s)
			return
		case k := <-keys:
			s.Input.SetKeys(k)
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			s.Tick(dt)
			if bots != nil {
				bots.Tick(dt)
			}
		}
	}
}

// dialerFor picks the transport. In loopback mode the room is shared with
// cfg.Bots in-process bots so there is someone to see.
func dialerFor(cfg ballroom.Config) (ballroom.Dialer, *ballroom.BotScene) {
	codec, _ := ballroom.CodecByName(cfg.Codec)
	switch {
	case cfg.Offline:
		return ballroom.OfflineDialer{}, nil
	case cfg.Loopback:
		hub := ballroom.NewLoopbackHub(codec)
		bots := ballroom.NewBotScene(cfg, time.Now().UnixNano())
		bots.Connect(context.Background(), hub)
		return hub, bots
	}
	return ballroom.RelayDialer{URL: cfg.RelayURL, Codec: codec}, nil
}

func shutdown(cfg ballroom.Config, s *ballroom.Session) {
	s.Close()
	if cfg.PaintPNG == "" {
		return
	}
	f, err := os.Create(cfg.PaintPNG)
	if err != nil {
		log.Printf("Unable to save canvas: %v", err)
		return
	}
	defer f.Close()
	if err := s.Canvas.WritePNG(f, cfg.PaintSize); err != nil {
		log.Printf("Unable to encode canvas: %v", err)
		return
	}
	log.Printf("Saved canvas to %s", cfg.PaintPNG)
}
