// Package main provides diceserver, a telnet dice roll server.
// Alongside the telnet sessions it serves gRPC health checks, Prometheus
// metrics and, when configured, hot-reloads the macro file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/diceroll/internal/config"
	"github.com/cory-johannsen/diceroll/internal/dice"
	"github.com/cory-johannsen/diceroll/internal/frontend/handlers"
	"github.com/cory-johannsen/diceroll/internal/frontend/telnet"
	"github.com/cory-johannsen/diceroll/internal/macro"
	"github.com/cory-johannsen/diceroll/internal/observability"
	"github.com/cory-johannsen/diceroll/internal/server"
)

// commandSlack leaves room on a telnet line for the command word in front of
// the longest expression the parser accepts.
const commandSlack = 64

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (optional)")
	macrosPath := flag.String("macros", "", "path to a macro YAML file, overrides macros.path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *macrosPath != "" {
		cfg.Macros.Path = *macrosPath
	}

	logger, err := observability.NewLogger(cfg.Logging, "diceserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting dice server",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("health_addr", cfg.Health.Addr()),
		zap.String("source", cfg.Dice.Source),
	)

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("building server", zap.Error(err))
	}

	logger.Info("dice server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Int("macros", app.macros.Current().Len()),
		zap.Bool("metrics", app.metrics != nil),
	)

	if err := app.lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// app holds the wired services of one server process.
type app struct {
	lifecycle *server.Lifecycle
	acceptor  *telnet.Acceptor
	health    *server.HealthServer
	http      *server.HTTPService
	macros    *macro.Registry
	metrics   *observability.Metrics
}

// newApp wires the roll services from cfg. Services are registered with the
// lifecycle in start order: macro watcher, metrics, telnet, health, readiness.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns an app ready to Run, or an error.
func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	src, err := dice.NewNamedSource(cfg.Dice.Source, cfg.Dice.Seed)
	if err != nil {
		return nil, err
	}
	parser := dice.NewParser(
		dice.WithMaxDepth(cfg.Dice.MaxDepth),
		dice.WithMaxLength(cfg.Dice.MaxLength),
	)
	roller := dice.NewLoggedRoller(parser, dice.FromSource(src), logger, dice.WithMaxRolls(cfg.Dice.MaxRolls))

	macros, err := macro.NewRegistry(cfg.Macros.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("loading macros: %w", err)
	}

	a := &app{
		lifecycle: server.NewLifecycle(logger),
		macros:    macros,
		health:    server.NewHealthServer(cfg.Health.Addr(), logger),
	}

	if cfg.Macros.Watch && cfg.Macros.Path != "" {
		watcher, err := macro.NewWatcher(macros, cfg.Macros.Debounce, logger)
		if err != nil {
			return nil, fmt.Errorf("watching macros: %w", err)
		}
		a.lifecycle.Add("macro-watcher", watcher)
	}

	if cfg.Metrics.Enabled {
		a.metrics = observability.NewMetrics(cfg.Metrics, nil)
		a.http = server.NewHTTPService(cfg.Metrics.Addr(), cfg.Metrics.Path, a.metrics.Handler(), logger)
		a.lifecycle.Add("metrics", a.http)
	}

	telnetCfg := cfg.Telnet
	if telnetCfg.MaxLine == 0 {
		telnetCfg.MaxLine = cfg.Dice.MaxLength + commandSlack
	}
	a.acceptor = telnet.NewAcceptor(telnetCfg, handlers.NewRollHandler(roller, macros, a.metrics, logger), logger)
	a.lifecycle.Add("telnet", a.acceptor)
	a.lifecycle.Add("health", a.health)

	// Report SERVING once telnet accepts connections; NOT_SERVING on shutdown.
	ready := make(chan struct{})
	a.lifecycle.Add("readiness", &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			for !a.acceptor.IsRunning() {
				select {
				case <-ready:
					return nil
				case <-ticker.C:
				}
			}
			a.health.SetServing(true)
			logger.Info("roll server ready", zap.String("telnet_addr", a.acceptor.Addr()))
			<-ready
			return nil
		},
		StopFn: func() {
			a.health.SetServing(false)
			close(ready)
		},
	})

	return a, nil
}
