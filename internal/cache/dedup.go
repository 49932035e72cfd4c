package cache

import (
	"context"
	"time"
)

// DedupGuard makes stored-SMS re-delivery idempotent: the modem hands
// the same message back if a previous poll died between reading it and
// acting on it.
type DedupGuard interface {
	// FirstDelivery reports whether this (number, sentAt, text) triple
	// has not been seen before.
	FirstDelivery(ctx context.Context, number string, sentAt time.Time, text string) (bool, error)
}

// AlwaysFirst is the guard used when Redis is disabled: every delivery
// counts as new.
type AlwaysFirst struct{}

func (AlwaysFirst) FirstDelivery(context.Context, string, time.Time, string) (bool, error) {
	return true, nil
}
