package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// circuitState tracks rate-limit backoff for a single recognizer.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// Fallback tries recognizers in order, skipping those with open circuits.
// A recognizer that answers ErrNoText ends the chain.
type Fallback struct {
	recognizers []Recognizer
	circuits    []*circuitState
	names       []string
	now         func() time.Time
}

// NewFallback creates a Fallback from an ordered list of recognizers and their names.
func NewFallback(recognizers []Recognizer, names []string) *Fallback {
	circuits := make([]*circuitState, len(recognizers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &Fallback{
		recognizers: recognizers,
		circuits:    circuits,
		names:       names,
		now:         time.Now,
	}
}

func (f *Fallback) Recognize(ctx context.Context, imageData []byte, contentType string) (string, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, r := range f.recognizers {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			slog.Debug("Skipping recognizer", "recognizer", f.names[i], "circuit_open_until", resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		text, err := r.Recognize(ctx, imageData, contentType)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, ErrNoText) {
			return "", err
		}

		slog.Warn("Recognizer failed", "recognizer", f.names[i], "error", err)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return "", NewRateLimitError("all", fmt.Errorf("all recognizers rate limited"), int(retryAfter.Seconds()))
	}

	return "", fmt.Errorf("all recognizers failed: %w", lastErr)
}

// Close closes every recognizer and returns the joined errors.
func (f *Fallback) Close() error {
	var errs []error
	for i, r := range f.recognizers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", f.names[i], err))
		}
	}
	return errors.Join(errs...)
}
