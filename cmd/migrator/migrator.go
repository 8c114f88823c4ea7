package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	config "github.com/NordCoder/ghrelay/internal/config/relay"
	"github.com/NordCoder/ghrelay/internal/repository/store"
)

func main() {
	configPath := pflag.String("config", "config/relay.yaml", "path to the yaml config; empty for env only")
	dsn := pflag.String("dsn", "", "store dsn, overrides store.dsn from the config")
	pflag.Parse()

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := *dsn
	if target == "" {
		cfg, err := config.Load(config.ResolvePath(*configPath, pflag.CommandLine.Changed("config")))
		if err != nil {
			log.Fatal(err)
		}
		target = cfg.Store.DSN
	}

	n, err := store.Migrate(ctx, target)
	if err != nil {
		log.Fatalf("migrate %s store: %v", store.Scheme(target), err)
	}
	log.Printf("migrations: up OK, %d applied", n)
}
