// Package catalog holds the reply templates BuddyBot draws from, keyed by topic.
//
// A Catalog is immutable once built. The built-in templates cover every topic;
// operators may replace the templates of individual topics with a YAML file.
package catalog

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BTreeMap/BuddyBot/internal/models"
	"gopkg.in/yaml.v3"
)

// Catalog maps each topic to its ordered list of reply templates.
type Catalog struct {
	templates map[models.Topic][]string
}

// File is the on-disk YAML shape for catalog overrides.
type File struct {
	Topics map[string][]string `yaml:"topics"`
}

// New builds a catalog from the given templates and validates it.
func New(templates map[models.Topic][]string) (*Catalog, error) {
	c := &Catalog{templates: make(map[models.Topic][]string, len(templates))}
	for topic, list := range templates {
		c.templates[topic] = append([]string(nil), list...)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(builtin)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads a YAML override file and merges it over the built-in templates.
// A topic listed in the file replaces the built-in list for that topic.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Catalog LoadFile read failed", "error", err, "path", path)
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		slog.Error("Catalog LoadFile parse failed", "error", err, "path", path)
		return nil, fmt.Errorf("failed to load catalog file %s: %w", path, err)
	}
	slog.Debug("Catalog LoadFile succeeded", "path", path)
	return c, nil
}

// Parse decodes YAML catalog overrides and merges them over the built-in templates.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid catalog YAML: %w", err)
	}

	merged := make(map[models.Topic][]string, len(builtin))
	for topic, list := range builtin {
		merged[topic] = list
	}
	for key, list := range f.Topics {
		topic := models.Topic(key)
		if !models.IsValidTopic(topic) {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownTopic, key)
		}
		merged[topic] = list
		slog.Debug("Catalog override applied", "topic", topic, "templates", len(list))
	}
	return New(merged)
}

// Validate checks that every known topic has at least one non-empty template
// and that no unknown topics are present.
func (c *Catalog) Validate() error {
	for topic := range c.templates {
		if !models.IsValidTopic(topic) {
			return fmt.Errorf("%w: %q", models.ErrUnknownTopic, topic)
		}
	}
	for _, topic := range models.AllTopics {
		list := c.templates[topic]
		if len(list) == 0 {
			return fmt.Errorf("%w: %s", models.ErrEmptyTopicTemplates, topic)
		}
		for i, tmpl := range list {
			if tmpl == "" {
				return fmt.Errorf("topic %s template %d is empty", topic, i)
			}
		}
	}
	return nil
}

// Lookup returns the templates for a topic, falling back to the default topic
// when the topic has no entry.
func (c *Catalog) Lookup(topic models.Topic) []string {
	if list, ok := c.templates[topic]; ok && len(list) > 0 {
		return list
	}
	slog.Warn("Catalog Lookup falling back to default topic", "topic", topic)
	return c.templates[models.TopicDefault]
}

// Topics returns the topics present in the catalog in canonical order.
func (c *Catalog) Topics() []models.Topic {
	out := make([]models.Topic, 0, len(c.templates))
	for _, topic := range models.AllTopics {
		if _, ok := c.templates[topic]; ok {
			out = append(out, topic)
		}
	}
	return out
}
