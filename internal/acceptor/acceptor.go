// Package acceptor binds the controller's TCP listener and spawns one
// session per accepted connection — spec.md §4.I. Adapted from the
// teacher's AcceptLoop (proxy.go): a net.Listen + Accept loop, rate-limited
// by the same connrate policy the teacher applies per client address.
package acceptor

import (
	"context"
	"net"

	"github.com/ephemeral-minigames/controller/internal/brain"
	"github.com/ephemeral-minigames/controller/internal/connrate"
	"github.com/ephemeral-minigames/controller/internal/session"
	"github.com/ephemeral-minigames/controller/pkg/logger"
)

// Config controls the acceptor's listener and buffering.
type Config struct {
	Listen  string
	BufSize int
}

// DefaultConfig matches spec.md §4.I's default port.
func DefaultConfig() Config {
	return Config{Listen: ":25550", BufSize: 0}
}

// Run binds cfg.Listen and accepts connections until ctx is canceled. Each
// accepted connection is rate-limited by limiter and, if allowed, handed to
// session.Handle in its own goroutine.
func Run(ctx context.Context, cfg Config, toBrain session.Brain, limiter *connrate.Limiter) error {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	logger.Info("acceptor: listening on %s", cfg.Listen)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("acceptor: accept error: %v", err)
			continue
		}

		if limiter != nil && !limiter.Allow(conn.RemoteAddr()) {
			logger.Warn("acceptor: rejecting %s: rate limit exceeded", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}

		logger.Trace("acceptor: new connection from %s", conn.RemoteAddr())

		go func() {
			defer func() {
				if limiter != nil {
					limiter.Release(conn.RemoteAddr())
				}
			}()

			if err := session.Handle(conn, toBrain, cfg.BufSize); err != nil {
				logger.Warn("acceptor: %s disconnected with error: %v", conn.RemoteAddr(), err)
			} else {
				logger.Info("acceptor: %s disconnected", conn.RemoteAddr())
			}
		}()
	}
}

// compile-time assertion that *brain.Handle satisfies session.Brain, so a
// caller can pass it directly to Run.
var _ session.Brain = (*brain.Handle)(nil)
