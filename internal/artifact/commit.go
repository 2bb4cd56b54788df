package artifact

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// committer turns a resolved plan into artifacts.
type committer struct {
	rules  []Rule
	fixups Fixups
	lookup func(Key) (Artifact, bool)
	logger *slog.Logger
}

// commit builds every key chosen by p. Nothing it builds is visible outside
// the returned map, so a failed commit leaves no trace.
func (c *committer) commit(p *plan) (map[Key]Artifact, error) {
	if len(p.unbuildable) > 0 {
		return nil, &UnresolvableKeysError{Keys: p.unbuildable}
	}

	pending := SortKeys(slices.Collect(maps.Keys(p.chosen)))
	closure := prerequisiteClosure(p.prereqs)

	placeholders := make(map[Key]Placeholder)
	for _, k := range pending {
		if !closure[k][k] {
			continue
		}
		ph, err := c.fixups.NewPlaceholder(k, c.rules[p.chosen[k]])
		if err != nil {
			return nil, err
		}
		placeholders[k] = ph
	}
	if len(placeholders) > 0 && c.logger.Enabled(context.Background(), slog.LevelDebug) {
		for _, path := range cyclePaths(prereqGraph(p.prereqs)) {
			c.logger.Debug("construction cycle", "path", formatPath(path))
		}
		c.logger.Debug("placeholders created", "count", len(placeholders))
	}

	built := make(map[Key]Artifact, len(pending))
	available := func(k Key) (Artifact, bool) {
		if a, ok := built[k]; ok {
			return a, true
		}
		if a, ok := c.lookup(k); ok {
			return a, true
		}
		if ph, ok := placeholders[k]; ok {
			return ph, true
		}
		return nil, false
	}

	for len(pending) > 0 {
		var remaining []Key
		for _, k := range pending {
			inputs, ready := gather(p.prereqs[k], available)
			if !ready {
				remaining = append(remaining, k)
				continue
			}
			rule := c.rules[p.chosen[k]]
			a, err := rule.Build(k, inputs)
			if err != nil {
				return nil, &BuildError{Key: k, Rule: RuleName(rule), Err: err}
			}
			if ph, ok := placeholders[k]; ok {
				if err := ph.Resolve(a); err != nil {
					return nil, &BuildError{Key: k, Rule: RuleName(rule), Err: err}
				}
				delete(placeholders, k)
			}
			built[k] = a
		}
		if len(remaining) == len(pending) {
			return nil, &NoProgressError{Remaining: remaining}
		}
		pending = remaining
	}
	return built, nil
}

// gather collects the artifacts for prereqs. It reports false when any of
// them is not available yet.
func gather(prereqs []Key, available func(Key) (Artifact, bool)) (map[Key]Artifact, bool) {
	inputs := make(map[Key]Artifact, len(prereqs))
	for _, d := range prereqs {
		a, ok := available(d)
		if !ok {
			return nil, false
		}
		inputs[d] = a
	}
	return inputs, true
}

// prerequisiteClosure computes, for every planned key, the set of keys it
// transitively requires. It unions the closures of direct prerequisites
// into each key until a full pass changes nothing; the key universe of one
// plan is finite, so this terminates.
func prerequisiteClosure(prereqs map[Key][]Key) map[Key]map[Key]bool {
	closure := make(map[Key]map[Key]bool, len(prereqs))
	for k, direct := range prereqs {
		set := make(map[Key]bool, len(direct))
		for _, d := range direct {
			set[d] = true
		}
		closure[k] = set
	}
	for changed := true; changed; {
		changed = false
		for _, set := range closure {
			for d := range set {
				for dd := range closure[d] {
					if !set[dd] {
						set[dd] = true
						changed = true
					}
				}
			}
		}
	}
	return closure
}
