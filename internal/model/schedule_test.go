package model

import (
	"testing"
	"time"
)

func TestDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name string
		rec  ScheduleRecord
		want bool
	}{
		{"scheduled in past", ScheduleRecord{ScheduledAt: &past}, true},
		{"scheduled exactly now", ScheduleRecord{ScheduledAt: &now}, true},
		{"scheduled in future", ScheduleRecord{ScheduledAt: &future}, false},
		{"no scheduled time", ScheduleRecord{}, false},
		{"already attempted", ScheduleRecord{ScheduledAt: &past, CalledAt: &now}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.rec.Due(now); got != tc.want {
				t.Fatalf("Due() = %v, want %v", got, tc.want)
			}
		})
	}
}
