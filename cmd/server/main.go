package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cafepos/internal/backup"
	"cafepos/internal/cache"
	"cafepos/internal/config"
	"cafepos/internal/httpapi"
	"cafepos/internal/printer"
	"cafepos/internal/reporting"
	"cafepos/internal/service"
	"cafepos/internal/share"
	"cafepos/internal/store"
	"cafepos/internal/store/memory"
	pgstore "cafepos/internal/store/postgres"
	"cafepos/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("repository unavailable")
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}
	log.Info().Str("driver", cfg.StoreDriver).Msg("repository ready")

	reportCache, closeCache := openCache(ctx, cfg)
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	receiptPrinter, err := printer.FromConfig(cfg.PrinterMode, cfg.PrinterPDFDir, cfg.PrinterAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid printer configuration")
	}
	log.Info().Str("mode", cfg.PrinterMode).Msg("printer ready")

	loc := cfg.Location()
	svc := service.New(repo, service.Options{
		Cache:     reportCache,
		Printer:   receiptPrinter,
		PageWidth: cfg.PageWidth,
		Location:  loc,
	})
	reports := reporting.NewAggregator(repo, reportCache, loc, cfg.ReportCacheTTL())
	backups := backup.NewManager(repo, svc, buildSharer(cfg))
	api := httpapi.New(svc, reports, backups, httpapi.Options{
		AllowedOrigin:      cfg.AllowedOrigin,
		WriteRatePerSecond: cfg.WriteRatePerSecond,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("cafe POS listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

func setupLogging(cfg config.Config, out io.Writer) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.IsProduction() {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
}

// openRepository returns the configured store and, for SQL stores, its closer.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.NewSeeded(), nil, nil
	case "postgres":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return pg, pg.Close, nil
	case "sqlite", "":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite %s: %w", cfg.SQLitePath, err)
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// openCache prefers Redis and falls back to no caching when it is unset or
// unreachable.
func openCache(ctx context.Context, cfg config.Config) (cache.ReportCache, func() error) {
	if cfg.RedisAddr == "" || cfg.ReportCacheTTLSeconds == 0 {
		log.Info().Msg("report cache: noop")
		return cache.NoopReportCache{}, nil
	}
	redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using noop report cache")
		_ = redisCache.Close()
		return cache.NoopReportCache{}, nil
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("report cache: redis")
	return redisCache, redisCache.Close
}

// buildSharer picks e-mail when SMTP is configured, else a directory, else nothing.
func buildSharer(cfg config.Config) share.Sharer {
	if cfg.EmailConfigured() {
		recipients := strings.FieldsFunc(cfg.BackupEmailTo, func(r rune) bool { return r == ',' || r == ';' || r == ' ' })
		return share.NewEmailSharer(share.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			To:       recipients,
		})
	}
	if cfg.BackupDir != "" {
		return share.DirSharer{Dir: cfg.BackupDir}
	}
	return nil
}
