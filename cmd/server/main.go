package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"formcraft/internal/auth"
	"formcraft/internal/config"
	"formcraft/internal/editor"
	"formcraft/internal/engine"
	"formcraft/internal/instrument"
	"formcraft/internal/logging"
	"formcraft/internal/metadata"
	"formcraft/internal/storage"
	"formcraft/internal/store"
)

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 1. Load config
	cfg, err := config.Load(os.Getenv("FORMCRAFT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	appLogger := logging.New(cfg.Log)
	log.Info().Int("port", cfg.Server.Port).Str("storage", cfg.Storage.Driver).Msg("config loaded")

	// 2. Open the saved-form store
	blobs, closeBlobs, err := store.OpenBlobStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer closeBlobs()
	repo := store.NewFormRepository(blobs, cfg.Forms.StorageKey)

	// 3. Load saved forms and start the builder session
	reg := metadata.NewRegistry()
	session := editor.NewSession(ctx, repo, reg, editor.DefaultEnv())

	// 4. Trace buffer
	var events *instrument.EventBuffer
	if cfg.Instrumentation.Enabled {
		sink := eventSink(ctx, cfg.Instrumentation, blobs, appLogger)
		events = instrument.NewEventBuffer(
			sink,
			cfg.Instrumentation.BufferSize,
			time.Duration(cfg.Instrumentation.FlushIntervalMs)*time.Millisecond,
		)
		defer events.Stop()
	}

	// 5. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          engine.ErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(instrument.Middleware(cfg.Instrumentation, events))

	// 6. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "forms": reg.Len()})
	})

	// 7. Auth routes (no auth required)
	authHandler, err := auth.NewAuthHandler(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure auth")
	}
	auth.RegisterAuthRoutes(app, authHandler)

	// 8. Form routes; editor routes require an editor token
	authMW := auth.AuthMiddleware(cfg.Auth.JWTSecret)
	editorMW := auth.RequireRole(auth.RoleEditor)
	handler := engine.NewHandler(engine.NewRuntime(nil), reg, session)
	engine.RegisterRoutes(app, handler, authMW, editorMW)

	// 9. Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info().Str("addr", addr).Msg("starting server")
		if err := app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

// eventSink picks where flushed trace events go. The database sink shares
// the SQL blob store's connection and prunes old events hourly.
func eventSink(ctx context.Context, cfg config.InstrumentationConfig, blobs storage.BlobStore, logger zerolog.Logger) instrument.Sink {
	logSink := instrument.LogSink{Logger: logger, Level: zerolog.DebugLevel}
	if cfg.Sink != "database" {
		return logSink
	}
	sqlBlobs, ok := blobs.(*store.SQLBlobStore)
	if !ok {
		log.Warn().Msg("database event sink needs a sqlite or postgres store, logging events instead")
		return logSink
	}
	sink := store.NewEventSink(sqlBlobs.Store())
	if cfg.RetentionDays > 0 {
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				if _, err := sink.CleanupOldEvents(ctx, cfg.RetentionDays); err != nil {
					log.Error().Err(err).Msg("event cleanup failed")
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}
	return sink
}
