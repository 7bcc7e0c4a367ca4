// Package classifier decides which topic a chat message belongs to.
//
// Classification is an ordered table of rules evaluated first-match-wins:
// follow-up continuation, emotional state, keyword topics, first-turn greeting,
// recency fallback and finally the default topic. Every input resolves to a topic.
package classifier

import (
	"log/slog"
	"strings"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

// DefaultRecencyProbability is the chance the recency rule reuses a recent topic.
const DefaultRecencyProbability = 0.5

// Rand is the random source consulted by probabilistic rules.
type Rand interface {
	Float64() float64
}

// Input is everything a rule may look at.
type Input struct {
	Text    string         // raw message
	Lower   string         // lowercased message
	History []models.Turn  // session history, oldest first
	Recent  []models.Topic // recent topics, most recent first
}

// Rule is one row of the decision table.
type Rule struct {
	Name  string
	Match func(in Input) (models.Topic, bool)
}

// Classifier evaluates its rules in order.
type Classifier struct {
	rules              []Rule
	rng                Rand
	recencyProbability float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRecencyProbability sets the probability used by the recency fallback.
func WithRecencyProbability(p float64) Option {
	return func(c *Classifier) {
		c.recencyProbability = p
	}
}

// New creates a Classifier drawing randomness from rng.
func New(rng Rand, opts ...Option) *Classifier {
	c := &Classifier{
		rng:                rng,
		recencyProbability: DefaultRecencyProbability,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rules = []Rule{
		{Name: "follow_up", Match: FollowUp},
		{Name: "emotional_state", Match: EmotionalState},
		{Name: "keyword", Match: Keyword},
		{Name: "greeting", Match: Greeting},
		{Name: "recency", Match: c.recency},
	}
	return c
}

// Classify returns the topic for text given the session history and recent topics.
func (c *Classifier) Classify(text string, history []models.Turn, recent []models.Topic) models.Topic {
	topic, _ := c.Explain(text, history, recent)
	return topic
}

// Explain is Classify that also reports which rule decided. The rule name is
// "default" when nothing matched.
func (c *Classifier) Explain(text string, history []models.Turn, recent []models.Topic) (models.Topic, string) {
	in := Input{
		Text:    text,
		Lower:   strings.ToLower(text),
		History: history,
		Recent:  recent,
	}
	for _, rule := range c.rules {
		if topic, ok := rule.Match(in); ok {
			slog.Debug("Classifier rule matched", "rule", rule.Name, "topic", topic)
			return topic, rule.Name
		}
	}
	return models.TopicDefault, "default"
}

// Rules returns the rule names in evaluation order.
func (c *Classifier) Rules() []string {
	out := make([]string, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.Name
	}
	return out
}

// FollowUp continues the previous topic for short non-greeting messages and for
// messages that refer back with "that", "it" or "this".
func FollowUp(in Input) (models.Topic, bool) {
	if len(in.History) == 0 {
		return "", false
	}
	last := in.History[len(in.History)-1].Topic
	short := len(strings.Fields(in.Text)) < followUpMaxTokens
	if short && !greetingPattern.MatchString(in.Lower) {
		return last, true
	}
	for _, marker := range followUpMarkers {
		if strings.Contains(in.Lower, marker) {
			return last, true
		}
	}
	return "", false
}

// EmotionalState gives sadness, then anxiety, priority over keyword topics.
func EmotionalState(in Input) (models.Topic, bool) {
	if sadPattern.MatchString(in.Lower) {
		return models.TopicFeelingSad, true
	}
	if anxiousPattern.MatchString(in.Lower) {
		return models.TopicFeelingAnxious, true
	}
	return "", false
}

// Keyword matches the fixed keyword topics in order.
func Keyword(in Input) (models.Topic, bool) {
	for _, kt := range keywordTopics {
		if kt.pattern.MatchString(in.Lower) {
			return kt.topic, true
		}
	}
	return "", false
}

// Greeting only applies to the first turn of a session.
func Greeting(in Input) (models.Topic, bool) {
	if len(in.History) == 0 && greetingPattern.MatchString(in.Lower) {
		return models.TopicGreeting, true
	}
	return "", false
}

// recency looks at the first recent topic that is neither default nor greeting
// and reuses it with the configured probability. Later entries are never tried.
func (c *Classifier) recency(in Input) (models.Topic, bool) {
	for _, topic := range in.Recent {
		if topic == models.TopicDefault || topic == models.TopicGreeting {
			continue
		}
		if c.rng != nil && c.rng.Float64() < c.recencyProbability {
			return topic, true
		}
		return "", false
	}
	return "", false
}
