package modem

import (
	"strconv"
	"strings"
	"time"
)

// Final result codes that end an AT command exchange.
var terminalTokens = []string{
	"OK",
	"ERROR",
	"NO CARRIER",
	"NO DIALTONE",
	"NO ANSWER",
	"BUSY",
}

func terminalStatus(line string) (string, bool) {
	for _, tok := range terminalTokens {
		if line == tok {
			return tok, true
		}
	}
	if strings.HasPrefix(line, "+CME ERROR:") || strings.HasPrefix(line, "+CMS ERROR:") {
		return line, true
	}
	return "", false
}

func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(line, "\r ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseCMGL extracts messages from AT+CMGL output. Each entry is a header
// line followed by the message body:
//
//	+CMGL: 3,"REC UNREAD","+37255501234",,"24/01/01,09:58:00+08"
//	Wake me at 07:30
//
// Unknown lines between entries are ignored.
func parseCMGL(lines []string) []Message {
	var msgs []Message
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "+CMGL:") {
			continue
		}
		fields := splitQuoted(strings.TrimSpace(strings.TrimPrefix(lines[i], "+CMGL:")))
		if len(fields) < 3 {
			continue
		}

		msg := Message{Number: fields[2]}
		if len(fields) >= 5 {
			msg.SentAt = parseSCTS(fields[4])
		}

		var body []string
		for i+1 < len(lines) && !strings.HasPrefix(lines[i+1], "+CMGL:") {
			i++
			body = append(body, lines[i])
		}
		msg.Text = strings.Join(body, "\n")
		msgs = append(msgs, msg)
	}
	return msgs
}

// parseCLCC reports whether AT+CLCC output lists a current call and
// whether that call is connected (stat 0). An empty list means no call.
func parseCLCC(lines []string) (active, answered bool) {
	for _, line := range lines {
		if !strings.HasPrefix(line, "+CLCC:") {
			continue
		}
		fields := splitQuoted(strings.TrimSpace(strings.TrimPrefix(line, "+CLCC:")))
		if len(fields) < 3 {
			continue
		}
		stat, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		active = true
		if stat == 0 {
			answered = true
		}
	}
	return active, answered
}

// parseSCTS parses a service-centre timestamp such as
// "24/01/01,09:58:00+08" (the zone is in quarter hours). A malformed
// timestamp yields the zero time rather than an error: the message is
// still worth delivering.
func parseSCTS(s string) time.Time {
	if len(s) < 17 {
		return time.Time{}
	}
	base, err := time.Parse("06/01/02,15:04:05", s[:17])
	if err != nil {
		return time.Time{}
	}

	loc := time.UTC
	if len(s) >= 20 {
		quarters, err := strconv.Atoi(s[18:20])
		if err == nil {
			offset := quarters * 15 * 60
			if s[17] == '-' {
				offset = -offset
			}
			loc = time.FixedZone("", offset)
		}
	}
	return time.Date(base.Year(), base.Month(), base.Day(),
		base.Hour(), base.Minute(), base.Second(), 0, loc)
}

// splitQuoted splits an AT response line on commas, honoring quoted
// fields and stripping their quotes. Empty fields are preserved.
func splitQuoted(s string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
