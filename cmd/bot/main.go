package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ScottBrooks/ballroom"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := ballroom.LoadConfig("bot", os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := ballroom.ConfigureLogging(cfg.LogLevel, cfg.LogColor); err != nil {
		log.Fatalf("logging: %v", err)
	}
	codec, _ := ballroom.CodecByName(cfg.Codec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bots := ballroom.NewBotScene(cfg, time.Now().UnixNano())
	bots.Connect(ctx, ballroom.RelayDialer{URL: cfg.RelayURL, Codec: codec})
	log.Printf("Running %d bots in room %s", len(bots.Sessions), cfg.Room)
	bots.Run(ctx)
}
