// Command mailer consumes verification-code events and emails the codes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/catboard/auth-service/internal/bootstrap"
	"github.com/catboard/auth-service/internal/logger"
)

type mailerBuilder func() (bootstrap.Runner, func(), error)

// Run blocks until a signal arrives or the consumer gives up.
func Run(build mailerBuilder, sigCh <-chan os.Signal, lg zerolog.Logger) int {
	m, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	select {
	case sig := <-sigCh:
		lg.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
		if err := <-errCh; err != nil {
			lg.Error().Err(err).Msg("mailer stopped with error")
			return 1
		}
	case err := <-errCh:
		if err != nil {
			lg.Error().Err(err).Msg("mailer crashed")
			return 1
		}
	}

	lg.Info().Msg("shutdown complete")
	return 0
}

func buildFromBootstrap() (bootstrap.Runner, func(), error) {
	m, cleanup, err := bootstrap.NewMailer()
	if err != nil {
		return nil, nil, err
	}
	return m, cleanup, nil
}

func main() {
	logger.Init()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(Run(buildFromBootstrap, sigCh, zlog.Logger))
}
