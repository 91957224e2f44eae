package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/DoyleJ11/rally-backend/internal/config"
)

const releaseVersion = "0.1.0"

func main() {
	log.SetFlags(0)

	// A missing .env is fine; real deployments set RALLY_* directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &config.Config{}
	if err := newCmd(cfg).ExecuteContext(ctx); err != nil {
		log.Println(err)
		stop()
		os.Exit(1)
	}
}
