package repo

import (
	"context"
	"errors"
	"time"

	"gsmalarm/internal/model"
)

// ErrNotFound is returned by RecordResult when the row no longer exists.
var ErrNotFound = errors.New("schedule record not found")

type ScheduleRepository interface {
	// Insert appends one record with called/result unset and returns its id.
	Insert(ctx context.Context, number *string, sentAt, receivedAt, scheduledAt time.Time) (int64, error)

	// FetchPending returns every record that has not been attempted yet
	// (called IS NULL). The time bound is checked by the caller per record.
	FetchPending(ctx context.Context) ([]model.ScheduleRecord, error)

	// RecordResult marks a record as attempted, setting calledAt and result
	// in a single update. Returns ErrNotFound if the row vanished.
	RecordResult(ctx context.Context, id int64, calledAt time.Time, result int) error

	// ListRecent returns records ordered by scheduled time, newest first.
	ListRecent(ctx context.Context, limit, offset int) ([]model.ScheduleRecord, error)
}
