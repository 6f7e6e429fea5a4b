package apiclient

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Coordinator guarantees at most one refresh in flight per credential key.
// Callers arriving while a refresh runs wait for it and share its outcome.
// Construct one per process and hand it to every Client.
type Coordinator struct {
	group singleflight.Group
}

// NewCoordinator creates a refresh coordinator
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// RefreshFunc performs one refresh and returns the tokens it obtained
type RefreshFunc func(ctx context.Context) (TokenPair, error)

// Do runs fn unless a call for key is already in flight, in which case it waits for that call.
// leader reports whether this caller ran fn. The key is released once fn returns,
// so the next caller after that starts a new call.
func (c *Coordinator) Do(ctx context.Context, key string, fn RefreshFunc) (tokens TokenPair, leader bool, err error) {
	// The leader's cancellation must not fail the waiters queued behind it.
	detached := context.WithoutCancel(ctx)

	v, err, _ := c.group.Do(key, func() (any, error) {
		leader = true
		return fn(detached)
	})
	if err != nil {
		return TokenPair{}, leader, err
	}
	return v.(TokenPair), leader, nil
}
