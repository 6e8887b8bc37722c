// Command cowrite-server runs the collaborative editing server: the OT
// engine and session fabric behind a WebSocket endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/cowrite/config"
	"github.com/deepnoodle-ai/cowrite/engine"
	"github.com/deepnoodle-ai/cowrite/eventbus"
	"github.com/deepnoodle-ai/cowrite/fabric"
	"github.com/deepnoodle-ai/cowrite/ratelimit"
	"github.com/deepnoodle-ai/cowrite/slogger"
	"github.com/deepnoodle-ai/cowrite/ws"
	"github.com/fatih/color"
)

var (
	errorStyle   = color.New(color.FgRed)
	successStyle = color.New(color.FgGreen)
)

func fatal(msg string, args ...interface{}) {
	fmt.Printf(errorStyle.Sprint(msg)+"\n", args...)
	os.Exit(1)
}

func main() {
	var configPath, addr, logLevel string
	var watch bool
	flag.StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.BoolVar(&watch, "watch", false, "Reload the config file on change")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.ParseFile(configPath)
		if err != nil {
			fatal("Error loading config: %s", err)
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		fatal("Invalid config: %s", err)
	}

	// A LevelVar lets config hot reload adjust verbosity in place
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.Level(slogger.LevelFromString(cfg.Log.Level)))
	logger := slogger.NewWithOptions(slogger.Options{
		LevelVar:   levelVar,
		WithCaller: true,
	})

	bus := eventbus.New(eventbus.Options{Logger: logger})
	bus.Subscribe("operation.*", func(ctx context.Context, event *cowrite.Event) error {
		logger.Debug("engine event",
			"event_type", event.Type, "editor_id", event.EditorID)
		return nil
	})

	eng, err := engine.New(engine.Options{
		Logger:                  logger,
		Bus:                     bus,
		CursorBroadcastInterval: cfg.CursorBroadcastInterval(),
	})
	if err != nil {
		fatal("Error creating engine: %s", err)
	}

	seeded, err := cfg.SeedDocuments()
	if err != nil {
		fatal("Error seeding documents: %s", err)
	}
	for _, doc := range seeded {
		eng.InitializeEditor(doc.EditorID, doc.Content)
		logger.Info("seeded document",
			"editor_id", doc.EditorID, "bytes", len(doc.Content))
	}

	fab := fabric.New(fabric.Options{
		Engine: eng,
		Logger: logger,
		RateLimiter: ratelimit.New(ratelimit.Options{
			MaxPerSecond: cfg.RateLimit.MaxPerSecond,
			MaxPerMinute: cfg.RateLimit.MaxPerMinute,
			Window:       cfg.RateLimitWindow(),
		}),
		HeartbeatInterval: cfg.HeartbeatInterval(),
	})
	fab.Start()

	handler, err := ws.NewHandler(ws.Options{Fabric: fab, Logger: logger})
	if err != nil {
		fatal("Error creating websocket handler: %s", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if watch && configPath != "" {
		watcher, err := config.NewWatcher(configPath, logger, func(next *config.Config) {
			level := slog.Level(slogger.LevelFromString(next.Log.Level))
			if levelVar.Level() != level {
				levelVar.Set(level)
				logger.Info("log level changed", "level", next.Log.Level)
			}
		})
		if err != nil {
			fatal("Error creating config watcher: %s", err)
		}
		go watcher.Start(ctx)
	}

	go func() {
		logger.Info("server listening",
			"addr", cfg.Server.Addr,
			"heartbeat_interval", cfg.HeartbeatInterval().String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("Server error: %s", err)
		}
	}()

	<-ctx.Done()
	fmt.Println(successStyle.Sprint("Shutting down..."))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	fab.Shutdown()
	eng.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fatal("Shutdown error: %s", err)
	}
}
