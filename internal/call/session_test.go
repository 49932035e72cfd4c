package call

import (
	"context"
	"errors"
	"testing"
	"time"

	"gsmalarm/internal/model"
	"gsmalarm/internal/modem"
)

// fakeCall scripts Active() answers; each query consumes one entry and
// the last entry repeats. Answered flips true at answeredAfter queries.
type fakeCall struct {
	activeScript  []bool
	activeQueries int

	answeredAfter int

	tonesErr    error
	tonesSent   string
	hangupCalls int
}

func (c *fakeCall) Active() bool {
	i := c.activeQueries
	if i >= len(c.activeScript) {
		i = len(c.activeScript) - 1
	}
	c.activeQueries++
	return c.activeScript[i]
}

func (c *fakeCall) Answered() bool {
	return c.activeQueries > c.answeredAfter
}

func (c *fakeCall) SendTones(digits string) error {
	c.tonesSent = digits
	return c.tonesErr
}

func (c *fakeCall) Hangup() error {
	c.hangupCalls++
	return nil
}

type fakeDialer struct {
	call *fakeCall
	err  error

	dialed string
}

func (d *fakeDialer) Dial(ctx context.Context, number string) (modem.Call, error) {
	d.dialed = number
	if d.err != nil {
		return nil, d.err
	}
	return d.call, nil
}

func newTestSession(d *fakeDialer) *Session {
	s := NewSession(d)
	s.sleep = func(time.Duration) {}
	return s
}

func TestRun_DialFailure(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{err: &modem.DialError{Number: "+372555", Err: errors.New("no network")}}
	s := newTestSession(d)

	if got := s.Run(context.Background(), "+372555"); got != model.ResultFailed {
		t.Fatalf("expected ResultFailed, got %d", got)
	}
	if d.dialed != "+372555" {
		t.Fatalf("expected dial attempt for +372555, got %q", d.dialed)
	}
}

func TestRun_NeverAnswered(t *testing.T) {
	t.Parallel()

	// Rings for three status checks, then the call drops.
	c := &fakeCall{
		activeScript:  []bool{true, true, true, false},
		answeredAfter: 1 << 30,
	}
	s := newTestSession(&fakeDialer{call: c})

	if got := s.Run(context.Background(), "+372555"); got != model.ResultUnanswered {
		t.Fatalf("expected ResultUnanswered, got %d", got)
	}
	if c.tonesSent != "" {
		t.Fatalf("expected no tone playback, sent %q", c.tonesSent)
	}
	if c.hangupCalls != 0 {
		t.Fatalf("expected no hangup on unanswered call, got %d", c.hangupCalls)
	}
}

func TestRun_AnsweredPlaybackSucceeds(t *testing.T) {
	t.Parallel()

	// Call stays active through playback; the session hangs up, after
	// which the ring loop sees the call gone and exits.
	c := &fakeCall{activeScript: []bool{true, true, true, false}}
	s := newTestSession(&fakeDialer{call: c})

	if got := s.Run(context.Background(), "+372555"); got != model.ResultAnswered {
		t.Fatalf("expected ResultAnswered, got %d", got)
	}
	if c.tonesSent != "111" {
		t.Fatalf("expected dtmf 111, sent %q", c.tonesSent)
	}
	if c.hangupCalls != 1 {
		t.Fatalf("expected exactly one hangup, got %d", c.hangupCalls)
	}
}

func TestRun_RemoteHangsUpDuringPlayback(t *testing.T) {
	t.Parallel()

	// Active for the loop check and the pre-playback guard, then gone:
	// playback is interrupted and the cleanup must skip the hangup.
	c := &fakeCall{
		activeScript: []bool{true, true, false},
		tonesErr:     modem.ErrCallInterrupted,
	}
	s := newTestSession(&fakeDialer{call: c})

	if got := s.Run(context.Background(), "+372555"); got != model.ResultAnswered {
		t.Fatalf("expected ResultAnswered despite interruption, got %d", got)
	}
	if c.hangupCalls != 0 {
		t.Fatalf("expected no hangup after remote ended call, got %d", c.hangupCalls)
	}
}

func TestRun_ToneCommandFailureStillAnswered(t *testing.T) {
	t.Parallel()

	c := &fakeCall{
		activeScript: []bool{true, true, true, false},
		tonesErr:     &modem.ToneError{Err: errors.New("command rejected")},
	}
	s := newTestSession(&fakeDialer{call: c})

	if got := s.Run(context.Background(), "+372555"); got != model.ResultAnswered {
		t.Fatalf("expected ResultAnswered despite tone failure, got %d", got)
	}
	if c.hangupCalls != 1 {
		t.Fatalf("expected hangup on still-active call, got %d", c.hangupCalls)
	}
}
