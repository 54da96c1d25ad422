// Command controller is the game-server fleet controller: it accepts
// connections from a proxy, limbo, lobby, and minigame servers, tells the
// proxy what exists, and dispatches players into running or freshly
// spawned minigame servers. Adapted from the teacher's cmd/karoo/main.go
// wiring style (flag parsing, JSON config load, signal-driven shutdown).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ephemeral-minigames/controller/internal/acceptor"
	"github.com/ephemeral-minigames/controller/internal/brain"
	"github.com/ephemeral-minigames/controller/internal/config"
	"github.com/ephemeral-minigames/controller/internal/connrate"
	"github.com/ephemeral-minigames/controller/internal/metricsx"
	"github.com/ephemeral-minigames/controller/internal/names"
	"github.com/ephemeral-minigames/controller/internal/registry"
	"github.com/ephemeral-minigames/controller/internal/spawner"
	"github.com/ephemeral-minigames/controller/internal/statusapi"
	"github.com/ephemeral-minigames/controller/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfgFile := flag.String("config", "config.json", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Println("controller v" + version)
		os.Exit(0)
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		logger.Fatal("failed to load config: %v", err)
	}

	logger.SetLevel(cfg.LogLevel)

	metrics := metricsx.Init(cfg.Metrics.Namespace)
	reg := registry.New(metrics)
	nameSet := names.New()

	containers, err := spawner.New()
	if err != nil {
		logger.Fatal("failed to connect to the container runtime: %v", err)
	}

	brainHandle := brain.Start(reg, nameSet, containers, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	limiter := connrate.NewLimiter(cfg.RateLimitConfig())

	go func() {
		if err := statusapi.Run(ctx, statusapi.Config{Listen: cfg.Status.Listen}, reg); err != nil {
			logger.Error("status server error: %v", err)
			cancel()
		}
	}()

	go func() {
		acceptorCfg := acceptor.Config{Listen: cfg.Acceptor.Listen, BufSize: cfg.Acceptor.ReadBuf}
		if err := acceptor.Run(ctx, acceptorCfg, brainHandle, limiter); err != nil {
			logger.Error("acceptor error: %v", err)
			cancel()
		}
	}()

	logger.Info("controller started, listening for servers on %s", cfg.Acceptor.Listen)

	<-sigCh
	logger.Info("shutting down...")
	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("shutdown complete")
}
