// Package alarm is the wake-up call pipeline: inbound SMS are mined for
// clock times and persisted as schedule records; due records trigger an
// outbound call whose outcome is written back exactly once.
//
// Unread-message delivery shares the fixed poll tick with due-record
// checking. The transport is a single non-reentrant modem session, so
// everything that touches it runs from one logical thread.
package alarm

import (
	"context"
	"log/slog"
	"time"

	"gsmalarm/internal/cache"
	"gsmalarm/internal/model"
	"gsmalarm/internal/modem"
	"gsmalarm/internal/repo"
	"gsmalarm/internal/timetoken"
)

// Caller places one outbound call and reports its outcome code.
type Caller interface {
	Run(ctx context.Context, number string) int
}

// Notifier receives persisted call outcomes. Best effort.
type Notifier interface {
	NotifyResult(ctx context.Context, id int64, number string, calledAt time.Time, result int) error
}

type Service struct {
	transport modem.Transport
	schedules repo.ScheduleRepository
	dedup     cache.DedupGuard
	caller    Caller

	notifier Notifier

	// now is swapped out in tests.
	now func() time.Time
}

func New(transport modem.Transport, schedules repo.ScheduleRepository, dedup cache.DedupGuard, caller Caller) *Service {
	return &Service{
		transport: transport,
		schedules: schedules,
		dedup:     dedup,
		caller:    caller,
		now:       time.Now,
	}
}

func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// Tick is one poll cycle: deliver pending unread messages (dispatching
// HandleMessage per message before the delivery call returns), then
// attempt every due schedule record.
func (s *Service) Tick(ctx context.Context) {
	if err := s.transport.ProcessStored(ctx, func(m modem.Message) {
		s.HandleMessage(ctx, m)
	}); err != nil {
		slog.Error("sms poll failed", "err", err)
	}

	records, err := s.schedules.FetchPending(ctx)
	if err != nil {
		slog.Error("pending schedule lookup failed", "err", err)
		return
	}

	for _, rec := range records {
		if !rec.Due(s.now()) {
			continue
		}
		s.attempt(ctx, rec)
	}
}

// HandleMessage extracts time tokens from one inbound SMS, inserts a
// schedule record per resolved token, and replies per token: an echo for
// successes, a notice for tokens that did not parse.
func (s *Service) HandleMessage(ctx context.Context, msg modem.Message) {
	slog.Info("sms received", "number", msg.Number, "sent", msg.SentAt, "text", msg.Text)

	received := s.now()

	first, err := s.dedup.FirstDelivery(ctx, msg.Number, msg.SentAt, msg.Text)
	if err != nil {
		// Fail open: a broken guard must not lose wake-up requests.
		slog.Warn("dedup guard unavailable", "err", err)
		first = true
	}
	if !first {
		slog.Info("duplicate sms delivery ignored", "number", msg.Number)
		return
	}

	for _, tok := range timetoken.Extract(msg.Text, received) {
		if tok.Err != nil {
			slog.Warn("unknown time token", "token", tok.Text)
			s.reply(ctx, msg.Number, "Unknown time: "+tok.Text)
			continue
		}

		var number *string
		if msg.Number != "" {
			number = &msg.Number
		}
		id, err := s.schedules.Insert(ctx, number, msg.SentAt, received, tok.At)
		if err != nil {
			slog.Error("schedule insert failed", "token", tok.Text, "err", err)
			continue
		}

		slog.Info("wake-up call scheduled", "id", id, "at", tok.At, "number", msg.Number)
		s.reply(ctx, msg.Number, "OK: "+tok.Text)
	}
}

// attempt runs the call for one due record and marks it completed. A
// record without a number is marked failed without touching the modem.
func (s *Service) attempt(ctx context.Context, rec model.ScheduleRecord) {
	result := model.ResultFailed
	number := ""
	if rec.Number != nil {
		number = *rec.Number
		result = s.caller.Run(ctx, number)
	}

	calledAt := s.now()
	if err := s.schedules.RecordResult(ctx, rec.ID, calledAt, result); err != nil {
		// One failed update must not abort the rest of the batch.
		slog.Error("recording call result failed", "id", rec.ID, "err", err)
		return
	}
	slog.Info("call attempt recorded", "id", rec.ID, "result", result)

	if s.notifier != nil {
		if err := s.notifier.NotifyResult(ctx, rec.ID, number, calledAt, result); err != nil {
			slog.Warn("outcome webhook failed", "id", rec.ID, "err", err)
		}
	}
}

func (s *Service) reply(ctx context.Context, number, text string) {
	if number == "" {
		return
	}
	if err := s.transport.Send(ctx, number, text); err != nil {
		slog.Warn("sms reply failed", "number", number, "err", err)
	}
}
