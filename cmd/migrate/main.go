// migrate applies the embedded schema migrations using the same env config as the api.
package main

import (
	"flag"
	"log/slog"
	"os"

	"voice-platform/internal/config"
	"voice-platform/internal/db/migrate"
	"voice-platform/pkg/logger"
)

func main() {
	direction := flag.String("direction", migrate.DirectionUp, "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, logger.Options{})
	if err := migrate.Run(cfg.PostgresURL(), *direction); err != nil {
		log.Error("migrate failed", "direction", *direction, "err", err)
		os.Exit(1)
	}
	log.Info("migrate complete", "direction", *direction)
}
