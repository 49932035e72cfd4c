package modem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

type Config struct {
	Port     string
	BaudRate int
	PIN      string
	SMSC     string
}

// GSM drives a modem over a serial port with text-mode AT commands. One
// mutex serializes every exchange on the port: the session is shared by
// the SMS poll loop and the active call, and AT sessions are not
// reentrant.
type GSM struct {
	mu   sync.Mutex
	port serial.Port
}

const (
	commandTimeout = 5 * time.Second
	smsTimeout     = 15 * time.Second
	readChunk      = 250 * time.Millisecond
)

// Connect opens the serial port and brings the modem into a known state:
// echo off, SIM unlocked, text-mode SMS, SMSC configured.
func Connect(cfg Config) (*GSM, error) {
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	m := &GSM{port: port}

	setup := []string{"ATZ", "ATE0"}
	if cfg.PIN != "" {
		setup = append(setup, "AT+CPIN="+cfg.PIN)
	}
	setup = append(setup, `AT+CMGF=1`)
	if cfg.SMSC != "" {
		setup = append(setup, fmt.Sprintf(`AT+CSCA="%s"`, cfg.SMSC))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cmd := range setup {
		if _, err := m.command(cmd, commandTimeout); err != nil {
			// A PIN that is already unlocked answers ERROR on some firmwares.
			if cmd == "AT+CPIN="+cfg.PIN {
				slog.Warn("sim pin command rejected, assuming unlocked", "err", err)
				continue
			}
			_ = port.Close()
			return nil, err
		}
	}
	return m, nil
}

func (m *GSM) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port.Close()
}

// ProcessStored lists unread messages and dispatches each to onMessage.
// Callbacks run after the port lock is released so they can reply
// through the same session.
func (m *GSM) ProcessStored(ctx context.Context, onMessage func(Message)) error {
	m.mu.Lock()
	lines, err := m.command(`AT+CMGL="REC UNREAD"`, commandTimeout)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	for _, msg := range parseCMGL(lines) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onMessage(msg)
	}
	return nil
}

func (m *GSM) Send(ctx context.Context, number, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.write(fmt.Sprintf("AT+CMGS=\"%s\"\r", number)); err != nil {
		return err
	}
	if err := m.awaitPrompt(commandTimeout); err != nil {
		return err
	}
	if err := m.write(text + "\x1a"); err != nil {
		return err
	}
	_, err := m.readResponse("AT+CMGS", smsTimeout)
	return err
}

func (m *GSM) Dial(ctx context.Context, number string) (Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Trailing semicolon requests a voice call, not data.
	if _, err := m.command("ATD"+number+";", commandTimeout); err != nil {
		return nil, &DialError{Number: number, Err: err}
	}
	return &gsmCall{m: m}, nil
}

type gsmCall struct {
	m *GSM
}

func (c *gsmCall) status() (active, answered bool) {
	c.m.mu.Lock()
	lines, err := c.m.command("AT+CLCC", commandTimeout)
	c.m.mu.Unlock()
	if err != nil {
		// Treat an unreadable call list as "call gone".
		return false, false
	}
	return parseCLCC(lines)
}

func (c *gsmCall) Active() bool {
	active, _ := c.status()
	return active
}

func (c *gsmCall) Answered() bool {
	_, answered := c.status()
	return answered
}

func (c *gsmCall) SendTones(digits string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	for _, d := range digits {
		if _, err := c.m.command(fmt.Sprintf("AT+VTS=%c", d), commandTimeout); err != nil {
			var cmdErr *CommandError
			if errors.As(err, &cmdErr) && cmdErr.Response == "NO CARRIER" {
				return ErrCallInterrupted
			}
			return &ToneError{Err: err}
		}
	}
	return nil
}

func (c *gsmCall) Hangup() error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	_, err := c.m.command("AT+CHUP", commandTimeout)
	return err
}

// command sends one AT command and collects response lines up to a
// terminal OK/ERROR. Callers must hold m.mu.
func (m *GSM) command(cmd string, timeout time.Duration) ([]string, error) {
	if err := m.write(cmd + "\r"); err != nil {
		return nil, err
	}
	return m.readResponse(cmd, timeout)
}

func (m *GSM) write(s string) error {
	if _, err := m.port.Write([]byte(s)); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (m *GSM) readResponse(cmd string, timeout time.Duration) ([]string, error) {
	raw, err := m.readUntil(timeout, func(buf string) (string, bool) {
		for _, line := range splitLines(buf) {
			if terminal, ok := terminalStatus(line); ok {
				return terminal, true
			}
		}
		return "", false
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd, err)
	}

	var body []string
	for _, line := range splitLines(raw) {
		terminal, ok := terminalStatus(line)
		if !ok {
			body = append(body, line)
			continue
		}
		if terminal != "OK" {
			return nil, &CommandError{Cmd: cmd, Response: terminal}
		}
		return body, nil
	}
	return nil, &CommandError{Cmd: cmd, Response: "truncated response"}
}

func (m *GSM) awaitPrompt(timeout time.Duration) error {
	raw, err := m.readUntil(timeout, func(buf string) (string, bool) {
		if strings.Contains(buf, ">") {
			return ">", true
		}
		// A terminal code without a prompt means the header was rejected.
		for _, line := range splitLines(buf) {
			if terminal, ok := terminalStatus(line); ok {
				return terminal, true
			}
		}
		return "", false
	})
	if err != nil {
		return err
	}
	if !strings.Contains(raw, ">") {
		return &CommandError{Cmd: "AT+CMGS", Response: strings.Join(splitLines(raw), " ")}
	}
	return nil
}

// readUntil accumulates port output until done reports a terminal token
// or the timeout elapses.
func (m *GSM) readUntil(timeout time.Duration, done func(string) (string, bool)) (string, error) {
	if err := m.port.SetReadTimeout(readChunk); err != nil {
		return "", fmt.Errorf("serial read timeout: %w", err)
	}

	var buf strings.Builder
	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 256)

	for time.Now().Before(deadline) {
		n, err := m.port.Read(chunk)
		if err != nil {
			return "", fmt.Errorf("serial read: %w", err)
		}
		buf.Write(chunk[:n])

		if _, ok := done(buf.String()); ok {
			return buf.String(), nil
		}
	}
	return "", fmt.Errorf("timed out after %s waiting for modem response", timeout)
}
