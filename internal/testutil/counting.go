package testutil

import (
	"sync"

	"github.com/roach88/traitsmith/internal/artifact"
)

// CountingRule wraps a rule and records every Build call per key. The
// wrapper forwards placeholder requests, so it can stand in for rules that
// take part in cycles.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type CountingRule struct {
	artifact.Rule

	mu     sync.Mutex
	builds map[artifact.Key]int
}

// NewCountingRule wraps r.
func NewCountingRule(r artifact.Rule) *CountingRule {
	return &CountingRule{Rule: r, builds: make(map[artifact.Key]int)}
}

// Build records the call and delegates.
func (c *CountingRule) Build(key artifact.Key, available map[artifact.Key]artifact.Artifact) (artifact.Artifact, error) {
	c.mu.Lock()
	c.builds[key]++
	c.mu.Unlock()
	return c.Rule.Build(key, available)
}

// NewPlaceholder delegates to the wrapped rule when it can supply one.
func (c *CountingRule) NewPlaceholder(key artifact.Key) artifact.Placeholder {
	if f, ok := c.Rule.(artifact.PlaceholderFactory); ok {
		return f.NewPlaceholder(key)
	}
	return nil
}

// String returns the wrapped rule's name.
func (c *CountingRule) String() string {
	return artifact.RuleName(c.Rule)
}

// Builds returns how often Build ran for key.
func (c *CountingRule) Builds(key artifact.Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds[key]
}

// TotalBuilds returns the number of Build calls over all keys.
func (c *CountingRule) TotalBuilds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.builds {
		n += v
	}
	return n
}

// CountingFixups wraps a Fixups and records every placeholder it hands
// out, per key. The placeholders are returned unwrapped because the store
// passes them to dependents as artifacts.
type CountingFixups struct {
	inner artifact.Fixups

	mu   sync.Mutex
	made map[artifact.Key][]artifact.Placeholder
}

// NewCountingFixups wraps inner. A nil inner means artifact.RuleFixups.
func NewCountingFixups(inner artifact.Fixups) *CountingFixups {
	if inner == nil {
		inner = artifact.RuleFixups{}
	}
	return &CountingFixups{inner: inner, made: make(map[artifact.Key][]artifact.Placeholder)}
}

// NewPlaceholder implements artifact.Fixups.
func (f *CountingFixups) NewPlaceholder(key artifact.Key, rule artifact.Rule) (artifact.Placeholder, error) {
	ph, err := f.inner.NewPlaceholder(key, rule)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.made[key] = append(f.made[key], ph)
	return ph, nil
}

// Created returns how many placeholders were made for key.
func (f *CountingFixups) Created(key artifact.Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.made[key])
}

// Placeholders returns the placeholders made for key, in creation order.
func (f *CountingFixups) Placeholders(key artifact.Key) []artifact.Placeholder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]artifact.Placeholder(nil), f.made[key]...)
}

// Keys returns the keys that received placeholders, in key order.
func (f *CountingFixups) Keys() []artifact.Key {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]artifact.Key, 0, len(f.made))
	for k := range f.made {
		keys = append(keys, k)
	}
	return artifact.SortKeys(keys)
}
