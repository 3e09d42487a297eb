package main

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/catboard/auth-service/internal/bootstrap"
)

type fakeMailer struct {
	runErr    error
	blockTill bool // wait for ctx before returning
	cancelled bool
}

func (f *fakeMailer) Run(ctx context.Context) error {
	if f.blockTill {
		<-ctx.Done()
		f.cancelled = true
	}
	return f.runErr
}

func TestRun_BootstrapFail_Returns1(t *testing.T) {
	build := func() (bootstrap.Runner, func(), error) {
		return nil, func() {}, errors.New("boom")
	}
	if got := Run(build, make(chan os.Signal, 1), zerolog.Nop()); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestRun_OnSignal_CancelsConsumer(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	sigCh <- os.Interrupt

	fm := &fakeMailer{blockTill: true}
	cleanupCalled := false
	build := func() (bootstrap.Runner, func(), error) {
		return fm, func() { cleanupCalled = true }, nil
	}

	if got := Run(build, sigCh, zerolog.Nop()); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if !fm.cancelled {
		t.Fatalf("expected consumer context to be cancelled")
	}
	if !cleanupCalled {
		t.Fatalf("expected cleanup called")
	}
}

func TestRun_ConsumerFails_Returns1(t *testing.T) {
	fm := &fakeMailer{runErr: errors.New("topology mismatch")}
	build := func() (bootstrap.Runner, func(), error) {
		return fm, func() {}, nil
	}
	if got := Run(build, make(chan os.Signal, 1), zerolog.Nop()); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}
