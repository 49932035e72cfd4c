package modem

import (
	"errors"
	"fmt"
)

// ErrCallInterrupted reports that the remote party ended the call while a
// command (typically DTMF playback) was in flight.
var ErrCallInterrupted = errors.New("call ended by remote party")

// CommandError is a modem-level failure of a single AT command.
type CommandError struct {
	Cmd      string
	Response string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("modem command %q failed: %s", e.Cmd, e.Response)
}

// DialError reports that the transport refused to place a call.
type DialError struct {
	Number string
	Err    error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s: %v", e.Number, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// ToneError reports a command-level failure during DTMF playback.
type ToneError struct {
	Err error
}

func (e *ToneError) Error() string {
	return fmt.Sprintf("dtmf playback: %v", e.Err)
}

func (e *ToneError) Unwrap() error { return e.Err }
