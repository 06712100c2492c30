package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memecal/internal/config"
	"github.com/memecal/internal/db"
	"github.com/memecal/internal/handler"
	"github.com/memecal/internal/logging"
	"github.com/memecal/internal/router"
	"github.com/memecal/internal/service"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("info", "console")
		logging.ErrorWithStack(err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logging.ErrorWithStack(err)
		log.Fatal().Str("path", cfg.DatabasePath).Msg("failed to initialize database")
	}
	if err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure admin user")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := newGallerySource(ctx, cfg)
	if err != nil {
		logging.ErrorWithStack(err)
		log.Fatal().Str("source", cfg.GallerySource).Msg("failed to build gallery source")
	}

	month := time.Month(cfg.TargetMonth)
	gate := service.NewDateGate(service.TargetRange{
		Year:     cfg.ResolvedTargetYear(time.Now()),
		Month:    month,
		Location: cfg.Location(),
	})
	resolver := service.NewGalleryResolver(source, month, cfg.ProbeConcurrency)
	api := handler.NewAPI(db.DB, gate, resolver, cfg.ContributeURL)

	opts := router.Options{API: api, SessionSecret: cfg.SessionSecret}
	if cfg.GallerySource == config.GallerySourceLocal {
		opts.MemesDir = cfg.MemesDir
		opts.MemesURLPath = cfg.MemesURLPath
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.SetupRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	rng := gate.Range()
	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("source", cfg.GallerySource).
		Int("year", rng.Year).
		Str("month", rng.Month.String()).
		Msg("memecal listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.ErrorWithStack(err)
		log.Fatal().Msg("failed to run server")
	}
	log.Info().Msg("server stopped")
}

func newGallerySource(ctx context.Context, cfg config.AppConfig) (service.GallerySource, error) {
	switch cfg.GallerySource {
	case config.GallerySourceHTTP:
		return service.NewHTTPSource(cfg.GalleryBaseURL, cfg.HTTPTimeout), nil
	case config.GallerySourceS3:
		return service.NewS3Source(ctx, service.S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			Prefix:          cfg.S3.Prefix,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
	default:
		return service.NewLocalSource(cfg.MemesDir, cfg.MemesURLPath), nil
	}
}
