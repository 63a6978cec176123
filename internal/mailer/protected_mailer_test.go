package mailer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/primeestates/primeestates/internal/mailer"
)

type scriptedMailer struct {
	calls int
	errs  []error
}

func (s *scriptedMailer) Send(ctx context.Context, to, subject, body string) error {
	s.calls++

	if len(s.errs) == 0 {
		return nil
	}

	err := s.errs[0]
	s.errs = s.errs[1:]

	return err
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	boom := fmt.Errorf("smtp down")
	inner := &scriptedMailer{errs: []error{boom, boom, boom}}

	pm := mailer.NewProtectedMailer(inner, mailer.ProtectedMailerConfig{
		FailureThreshold: 3,
		Cooldown:         time.Hour,
	})

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := pm.Send(ctx, "a@b.c", "s", "b"); err == nil {
			t.Fatalf("send %d should fail", i+1)
		}
	}

	// breaker is now open: inner must not be called again
	err := pm.Send(ctx, "a@b.c", "s", "b")

	if !errors.Is(err, mailer.ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	if inner.calls != 3 {
		t.Fatalf("inner called %d times, want 3", inner.calls)
	}
}

func TestCircuitRecoversThroughHalfOpen(t *testing.T) {
	boom := fmt.Errorf("smtp down")
	inner := &scriptedMailer{errs: []error{boom, boom}}

	pm := mailer.NewProtectedMailer(inner, mailer.ProtectedMailerConfig{
		FailureThreshold: 2,
		Cooldown:         20 * time.Millisecond,
	})

	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := pm.Send(ctx, "a@b.c", "s", "b"); err == nil {
			t.Fatalf("send %d should fail", i+1)
		}
	}

	if err := pm.Send(ctx, "a@b.c", "s", "b"); !errors.Is(err, mailer.ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	time.Sleep(30 * time.Millisecond)

	// half-open trial succeeds and closes the breaker
	if err := pm.Send(ctx, "a@b.c", "s", "b"); err != nil {
		t.Fatalf("half-open trial should succeed: %v", err)
	}

	if err := pm.Send(ctx, "a@b.c", "s", "b"); err != nil {
		t.Fatalf("closed breaker should pass traffic: %v", err)
	}
}

func TestProtectedMailerEnforcesTimeout(t *testing.T) {
	slow := mailerFunc(func(ctx context.Context, to, subject, body string) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	pm := mailer.NewProtectedMailer(slow, mailer.ProtectedMailerConfig{
		Timeout: 10 * time.Millisecond,
	})

	start := time.Now()
	err := pm.Send(context.Background(), "a@b.c", "s", "b")

	if err == nil {
		t.Fatalf("slow send should time out")
	}

	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("timeout did not cut the call short")
	}
}

type mailerFunc func(ctx context.Context, to, subject, body string) error

func (f mailerFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}
