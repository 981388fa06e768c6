package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	applog "expensebuddy/internal/log"
)

func TestGracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var deadline time.Time
	err := GracefulShutdown(ctx, applog.Discard(), time.Second, func(sctx context.Context) error {
		deadline, _ = sctx.Deadline()
		return nil
	})
	if err != nil {
		t.Fatalf("GracefulShutdown: %v", err)
	}
	if deadline.IsZero() {
		t.Fatal("shutdown context should carry the timeout")
	}

	want := errors.New("drain failed")
	if err := GracefulShutdown(ctx, applog.Discard(), time.Second, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}

func TestSignalContextCancel(t *testing.T) {
	ctx, cancel := SignalContext(context.Background(), applog.Discard())
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
