package timetoken

import (
	"regexp"
	"time"
)

// tokenPattern is deliberately looser than the strict parse below: it also
// matches fragments like "23:" or "7:3" so that near-miss tokens can be
// reported back to the sender instead of being silently dropped.
var tokenPattern = regexp.MustCompile(`[0-9]{1,2}:(?:[0-9]{2})?`)

// Token is one clock-time candidate found in a message body. Either At is
// set (the resolved future timestamp) or Err explains why the token did
// not parse.
type Token struct {
	Text string
	At   time.Time
	Err  error
}

// Extract scans text for clock-time tokens and resolves each against now.
// A token that parses as HH:MM is combined with the current date; if the
// result is not strictly after now it is rolled forward by exactly one
// day. Pure function: no side effects, restartable.
func Extract(text string, now time.Time) []Token {
	var tokens []Token
	for _, match := range tokenPattern.FindAllString(text, -1) {
		tok := Token{Text: match}
		parsed, err := time.Parse("15:04", match)
		if err != nil {
			tok.Err = err
			tokens = append(tokens, tok)
			continue
		}

		at := time.Date(now.Year(), now.Month(), now.Day(),
			parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		tok.At = at
		tokens = append(tokens, tok)
	}
	return tokens
}
