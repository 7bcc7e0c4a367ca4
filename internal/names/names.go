// Package names extracts a self-introduced name from free text.
package names

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// patterns are tried in order; the first accepted capture wins.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is (\w+)`),
	regexp.MustCompile(`(?i)\bi am (\w+)`),
	regexp.MustCompile(`(?i)\bi'm (\w+)`),
	regexp.MustCompile(`(?i)\bcall me (\w+)`),
}

// blocklist holds words that follow "I am"/"I'm" but describe a state, not a name.
var blocklist = map[string]bool{
	"sad":       true,
	"happy":     true,
	"ok":        true,
	"okay":      true,
	"fine":      true,
	"good":      true,
	"bad":       true,
	"depressed": true,
	"anxious":   true,
	"stressed":  true,
}

// Extract returns the Title-cased name introduced in text, if any.
// A capture on the blocklist is skipped and the next pattern is tried.
func Extract(text string) (string, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil || m[1] == "" {
			continue
		}
		if IsBlocked(m[1]) {
			continue
		}
		return titleCase(m[1]), true
	}
	return "", false
}

// IsBlocked reports whether word is an emotion or state word that must not be
// taken as a name.
func IsBlocked(word string) bool {
	return blocklist[strings.ToLower(word)]
}

func titleCase(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}
