package artifact

import (
	"maps"
	"slices"
)

// Strategy selects how the planner treats keys claimed by several rules.
type Strategy int

const (
	// StrategyBacktracking forks a candidate plan per applicable rule and
	// keeps the first plan that commits.
	StrategyBacktracking Strategy = iota

	// StrategyStrict requires exactly one applicable rule per key.
	StrategyStrict
)

func (s Strategy) String() string {
	if s == StrategyStrict {
		return "strict"
	}
	return "backtracking"
}

// keySet is a set of keys kept sorted by Compare so that planning visits
// keys in a deterministic order.
type keySet []Key

func (s keySet) contains(k Key) bool {
	_, found := slices.BinarySearchFunc(s, k, Compare)
	return found
}

func (s *keySet) add(k Key) {
	i, found := slices.BinarySearchFunc(*s, k, Compare)
	if !found {
		*s = slices.Insert(*s, i, k)
	}
}

func (s *keySet) popMin() Key {
	k := (*s)[0]
	*s = (*s)[1:]
	return k
}

// plan is one candidate assignment of rules to keys.
type plan struct {
	desires     keySet
	unbuildable []UnresolvableKey
	chosen      map[Key]int
	prereqs     map[Key][]Key
}

func newPlan(targets []Key) *plan {
	p := &plan{
		chosen:  make(map[Key]int),
		prereqs: make(map[Key][]Key),
	}
	for _, k := range targets {
		p.desires.add(k)
	}
	return p
}

func (p *plan) fork() *plan {
	return &plan{
		desires:     slices.Clone(p.desires),
		unbuildable: slices.Clone(p.unbuildable),
		chosen:      maps.Clone(p.chosen),
		prereqs:     maps.Clone(p.prereqs),
	}
}

// choose assigns rule index i to k and queues k's prerequisites.
func (p *plan) choose(k Key, i int, rule Rule, exists func(Key) bool) {
	var pre keySet
	for _, d := range rule.Prerequisites(k) {
		pre.add(d)
	}
	p.chosen[k] = i
	p.prereqs[k] = pre
	for _, d := range pre {
		if exists(d) {
			continue
		}
		if _, ok := p.chosen[d]; ok {
			continue
		}
		p.desires.add(d)
	}
}

// planner resolves a set of target keys against a rule catalog and the
// artifacts that already exist.
type planner struct {
	rules  []Rule
	exists func(Key) bool
}

func (pl *planner) applicable(k Key) []int {
	var idx []int
	for i, r := range pl.rules {
		if r.CanBuild(k) {
			idx = append(idx, i)
		}
	}
	return idx
}

// backtrack expands candidate plans until none has pending desires. Each
// round takes one desire from every plan that still has some. A plan that
// meets a key with no applicable rule stops expanding; it is kept so that
// committing it surfaces the unresolvable key.
func (pl *planner) backtrack(targets []Key) []*plan {
	plans := []*plan{newPlan(targets)}
	for {
		pending := false
		next := make([]*plan, 0, len(plans))
		for _, p := range plans {
			if len(p.desires) == 0 {
				next = append(next, p)
				continue
			}
			pending = true
			next = append(next, pl.expand(p)...)
		}
		plans = next
		if !pending {
			return plans
		}
	}
}

func (pl *planner) expand(p *plan) []*plan {
	k := p.desires.popMin()
	if pl.exists(k) {
		return []*plan{p}
	}
	if _, ok := p.chosen[k]; ok {
		return []*plan{p}
	}
	candidates := pl.applicable(k)
	if len(candidates) == 0 {
		p.unbuildable = append(p.unbuildable, UnresolvableKey{Key: k})
		p.desires = nil
		return []*plan{p}
	}
	forks := make([]*plan, len(candidates))
	for j, i := range candidates {
		q := p
		if j < len(candidates)-1 {
			q = p.fork()
		}
		q.choose(k, i, pl.rules[i], pl.exists)
		forks[j] = q
	}
	return forks
}

// strict resolves every key to its single applicable rule. Keys with zero
// or several candidates are collected and reported together once the
// desire queue is exhausted.
func (pl *planner) strict(targets []Key) (*plan, error) {
	p := newPlan(targets)
	var bad []UnresolvableKey
	rejected := make(map[Key]bool)
	for len(p.desires) > 0 {
		k := p.desires.popMin()
		if pl.exists(k) || rejected[k] {
			continue
		}
		if _, ok := p.chosen[k]; ok {
			continue
		}
		candidates := pl.applicable(k)
		if len(candidates) != 1 {
			rejected[k] = true
			bad = append(bad, UnresolvableKey{Key: k, Candidates: candidates})
			continue
		}
		p.choose(k, candidates[0], pl.rules[candidates[0]], pl.exists)
	}
	if len(bad) > 0 {
		return nil, &UnresolvableKeysError{Keys: bad}
	}
	return p, nil
}
