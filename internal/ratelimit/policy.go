package ratelimit

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule is the ceiling for one message type.
type Rule struct {
	MaxEvents int           `yaml:"max_events"`
	Window    time.Duration `yaml:"window"`
}

// UnmarshalYAML decodes a rule whose window is a duration string such
// as "10s" or "500ms".
func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxEvents int    `yaml:"max_events"`
		Window    string `yaml:"window"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	window, err := time.ParseDuration(raw.Window)
	if err != nil {
		return fmt.Errorf("window %q: %w", raw.Window, err)
	}
	r.MaxEvents = raw.MaxEvents
	r.Window = window
	return nil
}

// Policy maps message types to their throttle rules.
type Policy map[string]Rule

// DefaultPolicy returns the built-in ceilings for rate-limited message
// types.
func DefaultPolicy() Policy {
	return Policy{
		"room-join":     {MaxEvents: 5, Window: 10 * time.Second},
		"like-reaction": {MaxEvents: 10, Window: time.Second},
		"comment":       {MaxEvents: 3, Window: 5 * time.Second},
	}
}

// Rule returns the rule for a message type. Types with no rule are not
// rate limited.
func (p Policy) Rule(msgType string) (Rule, bool) {
	r, ok := p[msgType]
	return r, ok
}

// LoadPolicy reads a YAML policy file and merges it over the defaults,
// so an operator only overrides the ceilings they care about.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate limit policy: %w", err)
	}

	overrides := Policy{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse rate limit policy: %w", err)
	}

	p := DefaultPolicy()
	for t, r := range overrides {
		if r.MaxEvents <= 0 || r.Window <= 0 {
			return nil, fmt.Errorf("rate limit policy: invalid rule for %q", t)
		}
		p[t] = r
	}
	return p, nil
}
