// Package sanitizer normalises free text supplied by callers before it is
// stored on a booking.
package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var reHTMLTag = regexp.MustCompile(`<[^>]*>`)

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func stripTags(s string) string {
	return reHTMLTag.ReplaceAllString(s, "")
}

// TrimAndNormalize trims s and collapses every run of whitespace to one space.
func TrimAndNormalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes without splitting a character.
func Truncate(n int) Strategy {
	return func(s string) string {
		if utf8.RuneCountInString(s) <= n {
			return s
		}
		runes := []rune(s)
		return strings.TrimSpace(string(runes[:n]))
	}
}

// SanitizeText prepares a short free-text note such as a cancellation reason.
func SanitizeText(input string, maxLen int) string {
	p := Pipeline{
		stripControl,
		stripTags,
		TrimAndNormalize,
		Truncate(maxLen),
	}
	return p.Apply(input)
}

// SanitizeID trims surrounding whitespace from an identifier.
func SanitizeID(id string) string {
	return strings.TrimSpace(id)
}
