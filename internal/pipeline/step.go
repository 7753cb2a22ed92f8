package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"taxi-duration-lab/internal/observability"
)

// Step is one typed stage of a batch job.
type Step[In, Out any] interface {
	Name() string
	Run(ctx context.Context, in In) (Out, error)
}

// StepFunc adapts a function to Step.
type StepFunc[In, Out any] struct {
	name string
	fn   func(ctx context.Context, in In) (Out, error)
}

// NewStep creates a named Step from fn.
func NewStep[In, Out any](name string, fn func(ctx context.Context, in In) (Out, error)) Step[In, Out] {
	return StepFunc[In, Out]{name: name, fn: fn}
}

// Name returns the step name.
func (s StepFunc[In, Out]) Name() string { return s.name }

// Run calls the wrapped function.
func (s StepFunc[In, Out]) Run(ctx context.Context, in In) (Out, error) { return s.fn(ctx, in) }

// Policy is applied uniformly to every step: it logs start and finish,
// records step metrics, bounds each attempt with Timeout and retries
// failures that Retryable accepts.
type Policy struct {
	Retries   uint64        // extra attempts after the first, 0 disables retry
	Timeout   time.Duration // per attempt, 0 means none
	Retryable func(error) bool
	Logger    *log.Logger

	// newBackOff is replaced in tests to avoid sleeping.
	newBackOff func() backoff.BackOff
}

// DefaultPolicy runs every step exactly once.
func DefaultPolicy(logger *log.Logger) Policy {
	return Policy{Logger: logger}
}

func (p Policy) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return p.Logger
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.newBackOff != nil {
		b = p.newBackOff()
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 500 * time.Millisecond
		exp.MaxElapsedTime = 0
		b = exp
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, p.Retries), ctx)
}

// Execute runs step under p.
func Execute[In, Out any](ctx context.Context, p Policy, step Step[In, Out], in In) (Out, error) {
	logger := p.logger()
	name := step.Name()
	start := time.Now()
	attempt := 0

	logger.Printf("step %s: start", name)

	operation := func() (Out, error) {
		attempt++
		if attempt > 1 {
			observability.RecordStepRetry(name)
			logger.Printf("step %s: retry %d/%d", name, attempt-1, p.Retries)
		}

		runCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		out, err := step.Run(runCtx, in)
		if err != nil && (p.Retryable == nil || !p.Retryable(err)) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}

	out, err := backoff.RetryWithData(operation, p.backOff(ctx))
	elapsed := time.Since(start)

	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		observability.RecordStep(name, "error", elapsed.Seconds())
		logger.Printf("step %s: failed after %s: %v", name, elapsed.Round(time.Millisecond), err)
		return out, fmt.Errorf("%s: %w", name, err)
	}

	observability.RecordStep(name, "ok", elapsed.Seconds())
	logger.Printf("step %s: done in %s", name, elapsed.Round(time.Millisecond))
	return out, nil
}
