package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

func TestDefault_CoversEveryTopic(t *testing.T) {
	c := Default()
	for _, topic := range models.AllTopics {
		list := c.Lookup(topic)
		if len(list) == 0 {
			t.Errorf("topic %s has no templates", topic)
		}
	}
	if len(c.Topics()) != len(models.AllTopics) {
		t.Errorf("expected %d topics, got %d", len(models.AllTopics), len(c.Topics()))
	}
}

func TestLookup_FallsBackToDefault(t *testing.T) {
	c, err := New(map[models.Topic][]string{
		models.TopicMentalHealth:     {"m"},
		models.TopicFeelingSad:       {"s"},
		models.TopicFeelingAnxious:   {"a"},
		models.TopicSocialMedia:      {"sm"},
		models.TopicPositiveAttitude: {"p"},
		models.TopicWellBeing:        {"w"},
		models.TopicGaming:           {"g"},
		models.TopicGreeting:         {"hi"},
		models.TopicDefault:          {"fallback"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := c.Lookup(models.Topic("weather"))
	if len(got) != 1 || got[0] != "fallback" {
		t.Errorf("expected default templates, got %v", got)
	}
}

func TestNew_RejectsMissingTopic(t *testing.T) {
	_, err := New(map[models.Topic][]string{models.TopicDefault: {"x"}})
	if !errors.Is(err, models.ErrEmptyTopicTemplates) {
		t.Errorf("expected ErrEmptyTopicTemplates, got %v", err)
	}
}

func TestParse_OverridesSingleTopic(t *testing.T) {
	data := []byte(`
topics:
  gaming:
    - "Which console do you play on?"
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := c.Lookup(models.TopicGaming)
	if len(got) != 1 || got[0] != "Which console do you play on?" {
		t.Errorf("override not applied: %v", got)
	}
	if len(c.Lookup(models.TopicGreeting)) != 5 {
		t.Error("built-in greeting templates should be kept")
	}
}

func TestParse_RejectsUnknownTopic(t *testing.T) {
	_, err := Parse([]byte("topics:\n  weather: [\"sunny?\"]\n"))
	if !errors.Is(err, models.ErrUnknownTopic) {
		t.Errorf("expected ErrUnknownTopic, got %v", err)
	}
}

func TestParse_RejectsEmptyOverride(t *testing.T) {
	_, err := Parse([]byte("topics:\n  gaming: []\n"))
	if !errors.Is(err, models.ErrEmptyTopicTemplates) {
		t.Errorf("expected ErrEmptyTopicTemplates, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("topics:\n  default: [\"Tell me more?\"]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Lookup(models.TopicDefault); got[0] != "Tell me more?" {
		t.Errorf("unexpected default templates: %v", got)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
