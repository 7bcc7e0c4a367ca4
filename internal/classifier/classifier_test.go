package classifier

import (
	"testing"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

// fixedRand always returns the same value.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func historyOf(topics ...models.Topic) []models.Turn {
	turns := make([]models.Turn, 0, len(topics))
	for _, topic := range topics {
		turns = append(turns, models.Turn{UserText: "x", BotText: "y", Topic: topic, Timestamp: time.Unix(0, 0)})
	}
	return turns
}

func TestClassify_FirstTurn(t *testing.T) {
	c := New(fixedRand(0.99))
	tests := []struct {
		text string
		want models.Topic
	}{
		{"I feel sad about social media", models.TopicFeelingSad},
		{"I am so worried about my health", models.TopicFeelingAnxious},
		{"I'm feeling sad and anxious", models.TopicFeelingSad},
		{"therapy has helped me a lot", models.TopicMentalHealth},
		{"I like posting on Instagram", models.TopicSocialMedia},
		{"what a happy day", models.TopicPositiveAttitude},
		{"I need more sleep", models.TopicWellBeing},
		{"my favourite console is an Xbox", models.TopicGaming},
		{"mental games", models.TopicMentalHealth},
		{"hello there", models.TopicGreeting},
		{"Good morning!", models.TopicGreeting},
		{"the weather is nice", models.TopicDefault},
		{"playing outside", models.TopicDefault},
		{"", models.TopicDefault},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := c.Classify(tt.text, nil, nil); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_SadnessOutranksKeywords(t *testing.T) {
	c := New(fixedRand(0.99))
	for _, text := range []string{
		"my mental health makes me sad",
		"sad about games again",
		"I am happy but also upset",
		"crying over instagram comments",
	} {
		if got := c.Classify(text, nil, nil); got != models.TopicFeelingSad {
			t.Errorf("Classify(%q) = %s, want feeling_sad", text, got)
		}
	}
}

func TestClassify_FollowUp(t *testing.T) {
	c := New(fixedRand(0.99))
	history := historyOf(models.TopicSocialMedia, models.TopicGaming)

	tests := []struct {
		name string
		text string
		want models.Topic
	}{
		{"short message continues", "ok", models.TopicGaming},
		{"short message with keyword still continues", "I feel sad", models.TopicGaming},
		{"reference word continues", "tell me more about that please", models.TopicGaming},
		{"substring it continues", "what were we saying about writing", models.TopicGaming},
		{"greeting is not a follow-up", "hello", models.TopicDefault},
		{"hi is not a follow-up", "hi", models.TopicDefault},
		{"long message is reclassified", "Instagram makes me feel bad about myself", models.TopicSocialMedia},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text, history, nil); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_GreetingOnlyOnFirstTurn(t *testing.T) {
	c := New(fixedRand(0.99))
	if got := c.Classify("hi", nil, nil); got != models.TopicGreeting {
		t.Errorf("expected greeting on first turn, got %s", got)
	}
	if got := c.Classify("hi", historyOf(models.TopicGreeting), nil); got == models.TopicGreeting {
		t.Error("greeting must not be returned once history exists")
	}
}

func TestClassify_GreetingCarveOutDoesNotForcePreviousTopic(t *testing.T) {
	c := New(fixedRand(0.99))
	history := historyOf(models.TopicGaming)
	recent := []models.Topic{models.TopicGaming}
	if got := c.Classify("hello", history, recent); got == models.TopicGaming {
		t.Errorf("hello should not be forced to gaming, got %s", got)
	}
}

func TestClassify_Recency(t *testing.T) {
	text := "the weather is nice today"
	tests := []struct {
		name   string
		rng    float64
		recent []models.Topic
		want   models.Topic
	}{
		{"reuses first eligible topic", 0.1, []models.Topic{models.TopicGreeting, models.TopicDefault, models.TopicGaming, models.TopicSocialMedia}, models.TopicGaming},
		{"coin flip fails stops scanning", 0.9, []models.Topic{models.TopicGaming, models.TopicSocialMedia}, models.TopicDefault},
		{"only ineligible topics", 0.1, []models.Topic{models.TopicDefault, models.TopicGreeting}, models.TopicDefault},
		{"empty buffer", 0.1, nil, models.TopicDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(fixedRand(tt.rng))
			if got := c.Classify(text, nil, tt.recent); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassify_RecencyProbabilityOption(t *testing.T) {
	recent := []models.Topic{models.TopicWellBeing}
	always := New(fixedRand(0.99), WithRecencyProbability(1))
	if got := always.Classify("the weather is nice today", nil, recent); got != models.TopicWellBeing {
		t.Errorf("expected well_being, got %s", got)
	}
	never := New(fixedRand(0), WithRecencyProbability(0))
	if got := never.Classify("the weather is nice today", nil, recent); got != models.TopicDefault {
		t.Errorf("expected default, got %s", got)
	}
}

func TestExplain_ReportsRule(t *testing.T) {
	c := New(fixedRand(0.99))
	if _, rule := c.Explain("ok", historyOf(models.TopicGaming), nil); rule != "follow_up" {
		t.Errorf("expected follow_up, got %s", rule)
	}
	if _, rule := c.Explain("nothing matches here", nil, nil); rule != "default" {
		t.Errorf("expected default, got %s", rule)
	}
	want := []string{"follow_up", "emotional_state", "keyword", "greeting", "recency"}
	got := c.Rules()
	if len(got) != len(want) {
		t.Fatalf("expected %d rules, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rule %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRulesInIsolation(t *testing.T) {
	if _, ok := FollowUp(Input{Text: "ok", Lower: "ok"}); ok {
		t.Error("FollowUp must not match without history")
	}
	if topic, ok := EmotionalState(Input{Lower: "i'm so nervous"}); !ok || topic != models.TopicFeelingAnxious {
		t.Errorf("EmotionalState = %s, %v", topic, ok)
	}
	if _, ok := Keyword(Input{Lower: "healthy"}); !ok {
		t.Error("Keyword should match healthy")
	}
	if topic, _ := Keyword(Input{Lower: "healthy"}); topic != models.TopicWellBeing {
		t.Errorf("healthy should be well_being, got %s", topic)
	}
	if _, ok := Greeting(Input{Lower: "hey", History: historyOf(models.TopicGaming)}); ok {
		t.Error("Greeting must not match with history")
	}
}
