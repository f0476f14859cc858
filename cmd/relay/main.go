package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ScottBrooks/ballroom"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := ballroom.LoadConfig("relay", os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := ballroom.ConfigureLogging(cfg.LogLevel, cfg.LogColor); err != nil {
		log.Fatalf("logging: %v", err)
	}

	rs := ballroom.NewRelayServer()
	srv := &http.Server{Addr: cfg.Listen, Handler: rs.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()

	log.Printf("Relay listening on %s", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("relay: %v", err)
	}
}
