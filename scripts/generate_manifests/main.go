package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/memecal/internal/config"
	"github.com/memecal/internal/logging"
	"github.com/memecal/internal/manifest"
	"github.com/rs/zerolog/log"
)

func main() {
	defaultDir := "web/static/memes"
	logLevel := "info"
	if cfg, err := config.Load(); err == nil {
		defaultDir = cfg.MemesDir
		logLevel = cfg.LogLevel
	}

	var dir string
	var watch bool
	flag.StringVar(&dir, "dir", defaultDir, "memes root containing one directory per gallery id")
	flag.BoolVar(&watch, "watch", false, "keep running and regenerate manifests when images change")
	flag.Parse()

	logging.Init(logLevel, "console")

	result, err := manifest.Generate(dir)
	if err != nil {
		logging.ErrorWithStack(err)
		os.Exit(1)
	}
	log.Info().
		Int("galleries", result.Galleries).
		Int("written", len(result.Written)).
		Int("unchanged", len(result.Unchanged)).
		Msg("manifests generated")

	if !watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := manifest.Watch(ctx, dir); err != nil {
		logging.ErrorWithStack(err)
		os.Exit(1)
	}
}
