// Package main provides the promptvault server entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"

	"github.com/raohamdcreator-bit/promptvault/internal/auth"
	"github.com/raohamdcreator-bit/promptvault/internal/config"
	"github.com/raohamdcreator-bit/promptvault/internal/db"
	"github.com/raohamdcreator-bit/promptvault/internal/enhance"
	"github.com/raohamdcreator-bit/promptvault/internal/ratelimit"
	"github.com/raohamdcreator-bit/promptvault/internal/server"
	"github.com/raohamdcreator-bit/promptvault/internal/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Parse flags
	dataDir := flag.String("data-dir", "", "Data directory (default: ~/.promptvault)")
	port := flag.Int("port", 0, "HTTP port (default: from settings)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	// Ensure data and guest directories exist
	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directories")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
		cfg.DBPath = *dataDir + "/promptvault.db"
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *debug || cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down")
		cancel()
	}()

	// Initialize database store (migrations run automatically)
	logLevel := logger.Silent
	if *debug {
		logLevel = logger.Warn
	}
	store, err := db.NewStore(db.Config{
		Driver:   cfg.DBDriver,
		Path:     cfg.DBPath,
		DSN:      cfg.DBDSN,
		MaxConns: cfg.MaxConns,
		LogLevel: logLevel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer store.Close()

	// Rate limiting: Redis when configured, otherwise the always-allow
	// stub. Missing Redis must never block users.
	var counter ratelimit.Counter = ratelimit.NopCounter{}
	if cfg.RedisAddr != "" {
		redisCounter := ratelimit.NewRedisCounter(cfg.RedisAddr)
		if err := redisCounter.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, rate limiting disabled (fail-open)")
		} else {
			counter = redisCounter
			defer redisCounter.Close()
		}
	} else {
		log.Info().Msg("No Redis configured, rate limiting disabled (fail-open)")
	}
	limiter := ratelimit.NewLimiter(counter)

	// Enhancement backend: OpenAI when a key is configured, otherwise
	// the offline rule-based rewriter.
	var enhancer enhance.Enhancer = enhance.RuleEnhancer{}
	if cfg.OpenAIKey != "" {
		enhancer = enhance.NewOpenAIEnhancer(cfg.OpenAIKey, cfg.OpenAIModel)
		log.Info().Str("model", cfg.OpenAIModel).Msg("OpenAI enhancement enabled")
	}

	tokens := make(map[string]auth.Identity, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens[t.Token] = auth.Identity{UserID: t.UserID, Email: t.Email}
	}
	verifier := auth.NewStaticVerifier(tokens)

	svc := server.NewService(Version, cfg, store, limiter, verifier, enhancer)

	// Exit on settings change: the supervisor restarts the process with
	// the new configuration.
	settingsWatcher, err := watcher.New(config.SettingsPath(), cancel)
	if err != nil {
		log.Warn().Err(err).Msg("Settings watcher unavailable")
	} else {
		if err := settingsWatcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start settings watcher")
		}
		defer settingsWatcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(svc.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return svc.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
	log.Info().Msg("Server stopped")
}
