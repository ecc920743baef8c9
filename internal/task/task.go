// Package task runs a job step with whole-task retries.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moviesync/internal/config"
	"moviesync/internal/logger"
)

// ErrPermanent marks errors that must not be retried.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so that Runner.Run gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Func is one task attempt.
type Func func(ctx context.Context) error

// Runner retries a failing task up to Retries times.
type Runner struct {
	log     *logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	policy  config.RetryPolicy
	retries int
}

// NewRunner builds a runner from the tasks configuration.
func NewRunner(cfg config.TasksConfig, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}

	return &Runner{
		log:     log,
		sleep:   sleep,
		policy:  cfg.Retry,
		retries: max(cfg.Retries, 0),
	}
}

// Run calls fn until it succeeds, returns a permanent error, or the retries
// are used up. Each attempt gets the policy timeout.
func (r *Runner) Run(ctx context.Context, name string, fn Func) error {
	log := r.log.With("task", name)
	attempts := r.retries + 1

	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := r.policy.GetRetryDelay(attempt)
			log.Warn("retrying task", "attempt", attempt, "delay", delay, "error", err)

			if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
				return fmt.Errorf("task %s: %w", name, sleepErr)
			}
		}

		err = r.attempt(ctx, fn)
		if err == nil {
			if attempt > 1 {
				log.Info("task succeeded after retry", "attempt", attempt)
			}

			return nil
		}

		if errors.Is(err, ErrPermanent) || ctx.Err() != nil {
			break
		}
	}

	return fmt.Errorf("task %s: %w", name, err)
}

func (r *Runner) attempt(ctx context.Context, fn Func) error {
	if r.policy.TimeoutSec <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.policy.TimeoutSec)*time.Second)
	defer cancel()

	return fn(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
