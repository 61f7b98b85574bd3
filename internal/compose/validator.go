// Package compose holds the local rules for post and reply bodies.
package compose

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"journal/internal/core"
)

// MaxBodyLength is the maximum number of characters in a body.
const MaxBodyLength = 140

// warnThreshold is the remaining count below which the counter is highlighted.
const warnThreshold = 20

// Kind tells a top-level post from a reply. Only the wording of errors differs.
type Kind int

const (
	KindPost Kind = iota
	KindReply
)

func (k Kind) noun() string {
	if k == KindReply {
		return "Reply"
	}
	return "Post"
}

// Length counts characters of the raw, untrimmed body.
func Length(body string) int {
	return utf8.RuneCountInString(body)
}

// Remaining is the counter shown next to the input; negative means over the limit.
func Remaining(body string) int {
	return MaxBodyLength - Length(body)
}

// Validate checks a body before any network call.
// Whitespace-only bodies are empty; the length bound applies to the raw body.
func Validate(kind Kind, body string) error {
	if strings.TrimSpace(body) == "" {
		return core.ValidationError(fmt.Sprintf("%s cannot be empty", kind.noun()))
	}
	if Length(body) > MaxBodyLength {
		return core.ValidationError(fmt.Sprintf("%s must be %d characters or less", kind.noun(), MaxBodyLength))
	}
	return nil
}

// CounterLevel classifies the remaining counter for display.
type CounterLevel int

const (
	CounterNormal CounterLevel = iota
	CounterWarning
	CounterOver
)

func Level(remaining int) CounterLevel {
	switch {
	case remaining < 0:
		return CounterOver
	case remaining < warnThreshold:
		return CounterWarning
	default:
		return CounterNormal
	}
}
