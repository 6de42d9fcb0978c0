package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/latestcomment/tabbycat-dashboard/internal/config"
	"github.com/latestcomment/tabbycat-dashboard/internal/handlers"
	"github.com/latestcomment/tabbycat-dashboard/internal/logging"
	"github.com/latestcomment/tabbycat-dashboard/internal/services"
	"github.com/latestcomment/tabbycat-dashboard/internal/views"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	flagAddr   string
	flagData   string
	flagDir    string
	flagAI     string
)

func main() {
	root := &cobra.Command{
		Use:   "tabbycat-dashboard",
		Short: "TabbyCat AI tournament analytics dashboard",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :3000)")
	root.Flags().StringVar(&flagData, "data-url", "", "base URL of the tournament data backend")
	root.Flags().StringVar(&flagDir, "data-dir", "", "directory of static tournament JSON files")
	root.Flags().StringVar(&flagAI, "insight-url", "", "base URL of the AI insight backend")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var source services.Source
	if cfg.Data.Dir != "" {
		source = services.NewDirSource(cfg.Data.Dir, cfg.Data.Paths)
	} else {
		source = services.NewHTTPSource(cfg.Data.BaseURL, cfg.Data.Paths, &http.Client{Timeout: cfg.Data.Timeout})
	}

	engine := views.NewEngine()
	loader := services.NewDataLoader(source, cfg.Data.Timeout, log)
	insights := services.NewInsightClient(cfg.Insights.BaseURL, cfg.Insights.Timeout, log)
	sessions := services.NewSessionService(insights, engine, log)
	defer sessions.Close()

	app := fiber.New(fiber.Config{
		Views:                 engine,
		DisableStartupMessage: true,
	})
	app.Use(logger.New())
	handlers.Register(app, handlers.NewHandler(loader, sessions, log), handlers.NewWebSocketHandler(sessions, log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sessions.RunSweeper(ctx, time.Minute, cfg.Server.SessionTTL)

	errc := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", zap.String("addr", cfg.Server.Addr))
		errc <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		log.Info("shutting down")
		return app.ShutdownWithTimeout(5 * time.Second)
	}
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}
	if cmd.Flags().Changed("data-url") {
		cfg.Data.BaseURL, cfg.Data.Dir = flagData, ""
		if cfg.Insights.BaseURL == "" {
			cfg.Insights.BaseURL = flagData
		}
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.Data.Dir, cfg.Data.BaseURL = flagDir, ""
	}
	if flagAI != "" {
		cfg.Insights.BaseURL = flagAI
	}
}
