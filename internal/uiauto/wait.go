package uiauto

import (
	"context"
	"time"

	"github.com/nordapps/storecheck/internal/target"
)

// pollInterval is the fixed delay between element lookups while waiting.
const pollInterval = 500 * time.Millisecond

// WaitFor polls for an element until it appears or the timeout elapses.
// It returns the element id and true on success and "", false on
// timeout. Driver "no such element" responses are part of normal
// polling; any other driver error ends the wait early.
func (s *Session) WaitFor(ctx context.Context, loc target.Locator, timeout time.Duration) (string, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		id, err := s.Find(ctx, loc)
		if err == nil {
			return id, true, nil
		}
		if !IsNotFound(err) {
			return "", false, err
		}

		if time.Now().After(deadline) {
			return "", false, nil
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
