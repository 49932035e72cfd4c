package model

import "time"

// Call attempt outcomes as persisted in the result column.
const (
	ResultAnswered   = 1
	ResultUnanswered = 0
	ResultFailed     = -1
)

// ScheduleRecord is one requested wake-up call: a single time token
// extracted from an inbound SMS. One message may yield several records.
type ScheduleRecord struct {
	ID          int64
	Number      *string
	SentAt      time.Time
	ReceivedAt  time.Time
	ScheduledAt *time.Time
	CalledAt    *time.Time
	Result      *int
}

// Due reports whether the record should be called now: never attempted,
// has a scheduled time, and that time has arrived. Records with a nil
// scheduled time are tolerated (skipped, never crashed on).
func (r ScheduleRecord) Due(now time.Time) bool {
	return r.CalledAt == nil && r.ScheduledAt != nil && !r.ScheduledAt.After(now)
}
