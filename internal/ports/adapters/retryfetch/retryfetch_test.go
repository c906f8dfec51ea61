package retryfetch

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/brollcut/internal/ports/adapters/httpfetch"
)

type flaky struct {
	errs  []error
	calls int
}

func (f *flaky) Fetch(context.Context, string, string) error {
	f.calls++
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

func newTest(next *flaky, attempts int) *Fetcher {
	f := New(next, attempts, nil)
	f.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return f
}

func TestFetch_RetriesTransientErrors(t *testing.T) {
	next := &flaky{errs: []error{errors.New("reset"), &httpfetch.StatusError{Code: 503}}}
	require.NoError(t, newTest(next, 3).Fetch(context.Background(), "u", "d"))
	assert.Equal(t, 3, next.calls)
}

func TestFetch_GivesUpAfterAttempts(t *testing.T) {
	boom := errors.New("reset")
	next := &flaky{errs: []error{boom, boom, boom, boom}}
	err := newTest(next, 3).Fetch(context.Background(), "u", "d")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, next.calls)
}

func TestFetch_PermanentErrorsAreNotRetried(t *testing.T) {
	next := &flaky{errs: []error{&httpfetch.StatusError{Code: 404}}}
	err := newTest(next, 3).Fetch(context.Background(), "u", "d")

	var se *httpfetch.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 404, se.Code)
	assert.Equal(t, 1, next.calls)
}

func TestFetch_DefaultAttempts(t *testing.T) {
	assert.Equal(t, uint(DefaultAttempts), New(&flaky{}, 0, nil).attempts)
}
