// Package retryfetch retries a Fetcher with exponential backoff.
package retryfetch

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/forPelevin/brollcut/internal/ports"
	"github.com/forPelevin/brollcut/internal/ports/adapters/httpfetch"
)

const DefaultAttempts = 3

type Fetcher struct {
	next     ports.Fetcher
	attempts uint
	log      *zap.Logger

	newBackOff func() backoff.BackOff
}

func New(next ports.Fetcher, attempts int, log *zap.Logger) *Fetcher {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		next:     next,
		attempts: uint(attempts),
		log:      log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 300 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

func (f *Fetcher) Fetch(ctx context.Context, locator, destPath string) error {
	op := func() (struct{}, error) {
		err := f.next.Fetch(ctx, locator, destPath)
		if err != nil && permanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(f.newBackOff()),
		backoff.WithMaxTries(f.attempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			f.log.Warn("fetch failed, retrying",
				zap.String("locator", locator),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
	return err
}

func permanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, httpfetch.ErrUnsupportedScheme) || errors.Is(err, os.ErrNotExist) {
		return true
	}
	var se *httpfetch.StatusError
	if errors.As(err, &se) {
		return se.Permanent()
	}
	return false
}
