// Package call drives a single outbound voice call through its state
// machine: dial, ring, answer or reject, tone playback, hangup.
package call

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gsmalarm/internal/model"
	"gsmalarm/internal/modem"
)

const (
	// ringPoll is how often call status is re-checked while ringing.
	ringPoll = time.Second
	// answerGrace is the wait after pickup before tones play, so the
	// start of the confirmation tone is not clipped.
	answerGrace = time.Second
	// confirmTones is the DTMF sequence played to an answered call.
	confirmTones = "111"
)

type Session struct {
	dialer modem.Dialer

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewSession(dialer modem.Dialer) *Session {
	return &Session{
		dialer: dialer,
		sleep:  time.Sleep,
	}
}

// Run places one call to number and returns the persisted outcome:
// ResultAnswered if the call was ever picked up (whatever happened to
// tone playback afterwards), ResultUnanswered if it ended without an
// answer, ResultFailed if dialing itself was refused. A shutdown signal
// does not preempt a session in flight; it runs to natural completion.
func (s *Session) Run(ctx context.Context, number string) int {
	slog.Info("dialing", "number", number)

	c, err := s.dialer.Dial(ctx, number)
	if err != nil {
		slog.Error("call failed", "number", number, "err", err)
		return model.ResultFailed
	}

	answered := false
	for c.Active() {
		if !c.Answered() {
			s.sleep(ringPoll)
			continue
		}

		answered = true
		slog.Info("call answered, waiting before tone playback", "number", number)
		s.sleep(answerGrace)
		s.playAndHangup(c)
	}

	if !answered {
		slog.Info("call not answered by remote party", "number", number)
		return model.ResultUnanswered
	}
	return model.ResultAnswered
}

// playAndHangup plays the confirmation tones if the call survived the
// grace wait, then releases the call: an explicit hangup when the line
// is still up, nothing when the remote party already ended it. The
// release runs on every playback error path.
func (s *Session) playAndHangup(c modem.Call) {
	defer func() {
		if c.Active() {
			slog.Info("hanging up call")
			if err := c.Hangup(); err != nil {
				slog.Error("hangup failed", "err", err)
			}
		} else {
			slog.Info("call ended by remote party")
		}
	}()

	if !c.Active() {
		return
	}

	slog.Info("playing dtmf tones", "digits", confirmTones)
	err := c.SendTones(confirmTones)
	switch {
	case err == nil:
	case errors.Is(err, modem.ErrCallInterrupted):
		slog.Warn("dtmf playback interrupted", "err", err)
	default:
		slog.Warn("dtmf playback failed", "err", err)
	}
}
