// Package responder picks a reply template for a topic and personalizes it with
// the user's name.
package responder

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/BTreeMap/BuddyBot/internal/catalog"
	"github.com/BTreeMap/BuddyBot/internal/models"
)

// DefaultPersonalizeProbability is the chance a reply is addressed by name.
const DefaultPersonalizeProbability = 0.5

// Rand is the random source used for template draws and personalization.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Selector draws replies from a catalog.
type Selector struct {
	catalog                *catalog.Catalog
	rng                    Rand
	personalizeProbability float64
}

// Option configures a Selector.
type Option func(*Selector)

// WithPersonalizeProbability sets how often a known name is worked into the reply.
func WithPersonalizeProbability(p float64) Option {
	return func(s *Selector) {
		s.personalizeProbability = p
	}
}

// New creates a Selector over cat using rng.
func New(cat *catalog.Catalog, rng Rand, opts ...Option) *Selector {
	s := &Selector{
		catalog:                cat,
		rng:                    rng,
		personalizeProbability: DefaultPersonalizeProbability,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select draws a template for topic uniformly at random and, when name is set,
// personalizes it with the configured probability.
func (s *Selector) Select(topic models.Topic, name string) string {
	templates := s.catalog.Lookup(topic)
	reply := templates[s.rng.IntN(len(templates))]
	if name != "" && s.rng.Float64() < s.personalizeProbability {
		reply = Personalize(reply, name)
	}
	return reply
}

// Personalize addresses tmpl to name.
//
// Questions get ", name" right before the first "?". Otherwise the name leads the
// second sentence when there is one, or the whole reply when there is not.
func Personalize(tmpl, name string) string {
	if i := strings.Index(tmpl, "?"); i >= 0 {
		return tmpl[:i] + ", " + name + tmpl[i:]
	}
	if first, rest, ok := strings.Cut(tmpl, ". "); ok && rest != "" {
		return first + ". " + name + ", " + lowerFirstLetter(rest)
	}
	return name + ", " + lowerFirstLetter(tmpl)
}

// lowerFirstLetter lowercases the first letter of s, skipping leading emoji and
// punctuation. The pronoun "I" keeps its capital.
func lowerFirstLetter(s string) string {
	for i, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if isPronounI(s[i:]) {
			return s
		}
		return s[:i] + string(unicode.ToLower(r)) + s[i+utf8.RuneLen(r):]
	}
	return s
}

func isPronounI(s string) bool {
	if !strings.HasPrefix(s, "I") {
		return false
	}
	if len(s) == 1 {
		return true
	}
	next, _ := utf8.DecodeRuneInString(s[1:])
	return next == ' ' || next == '\'' || next == '’'
}
