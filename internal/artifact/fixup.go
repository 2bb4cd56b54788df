package artifact

// Placeholder stands in for an artifact that is still under construction.
// The placeholder value itself is handed to dependents; Resolve back-patches
// it with the real artifact and must succeed exactly once.
type Placeholder interface {
	Resolve(real Artifact) error
}

// PlaceholderFactory is implemented by rules whose products can take part
// in construction cycles.
type PlaceholderFactory interface {
	NewPlaceholder(key Key) Placeholder
}

// Fixups creates placeholders for keys found on construction cycles. The
// rule passed in is the rule the plan chose for key.
type Fixups interface {
	NewPlaceholder(key Key, rule Rule) (Placeholder, error)
}

// RuleFixups is the default Fixups. It asks the chosen rule for a
// placeholder and fails with a CycleError when the rule has none to offer.
type RuleFixups struct{}

// NewPlaceholder implements Fixups.
func (RuleFixups) NewPlaceholder(key Key, rule Rule) (Placeholder, error) {
	f, ok := rule.(PlaceholderFactory)
	if !ok {
		return nil, &CycleError{Key: key, Rule: RuleName(rule)}
	}
	p := f.NewPlaceholder(key)
	if p == nil {
		return nil, &CycleError{Key: key, Rule: RuleName(rule)}
	}
	return p, nil
}
