package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"character-sync/core/config"
	"character-sync/core/loader"
	"character-sync/core/logger"
	"character-sync/core/messaging"
	"character-sync/core/middleware/auth"
	"character-sync/core/middleware/rayid"
	"character-sync/feature/character"
	"character-sync/feature/character/events"
	"character-sync/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "character-sync/docs/swagger"
)

// @title Character Sync API
// @version 1.0
// @description Versioned character state with conflict-aware updates.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the character sync server",
	Long:  `Starts the HTTP server, the version cleanup loop and, when enabled, the NATS subscriber.`,
	RunE:  runStart,
}

func init() {
	RootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logg.Sync()
	zap.ReplaceGlobals(logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg, logg)
	if err != nil {
		return err
	}
	if err := rt.manager.Start(ctx); err != nil {
		return err
	}

	var subscriber *events.Subscriber
	if cfg.Messaging.Enabled {
		conn, err := messaging.Connect(cfg.Messaging, logg)
		if err != nil {
			return err
		}
		defer conn.Close()
		subscriber = events.NewSubscriber(conn, cfg.Messaging, rt.service, logg)
		if err := subscriber.Start(); err != nil {
			return err
		}
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout(),
		BodyLimit:             cfg.Server.BodyLimitBytes,
	})

	// RayID first so every log line carries it
	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		start := time.Now()
		err := c.Next()
		l.Info("Request handled",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	public := []string{"/swagger", "/healthz"}
	if rt.recorder != nil {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(rt.recorder.Handler()))
		public = append(public, cfg.Metrics.Path)
	}

	app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: public}))
	if !cfg.Server.AuthEnabled() {
		logg.Warn("API key not configured, endpoints are unauthenticated")
	}

	features := loader.NewManager(logg)
	features.Register(character.NewFeature(rt.service, character.NewHandler(rt.service, logg)))
	features.Register(integrity.NewFeature(rt.integrity))
	if err := features.LoadAll(app); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("port", cfg.Server.Port))
		serveErr <- app.Listen(cfg.Server.Addr())
	}()

	select {
	case <-ctx.Done():
		logg.Info("Shutting down server...")
	case err := <-serveErr:
		logg.Error("Server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if subscriber != nil {
		if err := subscriber.Stop(); err != nil {
			logg.Warn("Failed to drain subscription", zap.Error(err))
		}
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	return rt.manager.Stop(shutdownCtx)
}
