package artifact

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Store memoizes built artifacts and build failures per key.
//
// All access is serialized by one mutex. Building runs on the caller's
// goroutine while the lock is held; no two builds run concurrently within a
// store. Rules must therefore not call back into the same store.
type Store struct {
	mu        sync.Mutex
	rules     []Rule
	strategy  Strategy
	fixups    Fixups
	logger    *slog.Logger
	artifacts map[Key]Artifact
	failures  map[Key]error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for planning and build diagnostics.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithStrategy selects the planning strategy.
// Default: StrategyBacktracking.
func WithStrategy(st Strategy) Option {
	return func(s *Store) {
		s.strategy = st
	}
}

// WithFixups replaces the placeholder source. Default: RuleFixups.
func WithFixups(f Fixups) Option {
	return func(s *Store) {
		s.fixups = f
	}
}

// WithSupplier appends the supplier's rules to the catalog. Rules keep
// their order; catalog order is the order backtracking tries forks in.
func WithSupplier(sup Supplier) Option {
	return func(s *Store) {
		s.rules = append(s.rules, sup.Rules()...)
	}
}

// NewStore creates a store over a rule catalog. The rules slice is copied.
func NewStore(rules []Rule, opts ...Option) *Store {
	s := &Store{
		rules:     slices.Clone(rules),
		strategy:  StrategyBacktracking,
		fixups:    RuleFixups{},
		logger:    slog.Default(),
		artifacts: make(map[Key]Artifact),
		failures:  make(map[Key]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the artifact for key, building it and its missing
// prerequisites on first demand.
//
// A key that failed before replays the cached error without invoking any
// rule. A new failure is cached against key only; prerequisites that were
// part of the failed attempt stay unbuilt and uncached.
func (s *Store) Get(key Key) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.artifacts[key]; ok {
		return a, nil
	}
	if err, ok := s.failures[key]; ok {
		return nil, err
	}

	built, err := s.build([]Key{key})
	if err != nil {
		s.failures[key] = err
		s.logger.Warn("artifact build failed", "key", key.String(), "error", err)
		return nil, err
	}
	maps.Copy(s.artifacts, built)
	return s.artifacts[key], nil
}

// Resolve builds every missing key in keys in one resolution and returns
// only the artifacts it newly built. Unlike Get it does not consult or
// populate the failure cache.
func (s *Store) Resolve(keys ...Key) (map[Key]Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []Key
	for _, k := range keys {
		if _, ok := s.artifacts[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return map[Key]Artifact{}, nil
	}
	built, err := s.build(missing)
	if err != nil {
		return nil, err
	}
	maps.Copy(s.artifacts, built)
	return built, nil
}

// Add seeds or overrides the artifact for key. The key is never built by a
// rule afterwards, and any failure cached for it is forgotten.
func (s *Store) Add(key Key, a Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[key] = a
	delete(s.failures, key)
}

// Has reports whether an artifact for key is cached.
func (s *Store) Has(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.artifacts[key]
	return ok
}

// Failure returns the cached failure for key, if any.
func (s *Store) Failure(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[key]
}

// Len returns the number of cached artifacts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artifacts)
}

// Keys returns the cached keys in Compare order.
func (s *Store) Keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SortKeys(slices.Collect(maps.Keys(s.artifacts)))
}

// build plans and commits targets. Callers hold s.mu.
func (s *Store) build(targets []Key) (map[Key]Artifact, error) {
	exists := func(k Key) bool {
		_, ok := s.artifacts[k]
		return ok
	}
	lookup := func(k Key) (Artifact, bool) {
		a, ok := s.artifacts[k]
		return a, ok
	}
	pl := &planner{rules: s.rules, exists: exists}
	c := &committer{rules: s.rules, fixups: s.fixups, lookup: lookup, logger: s.logger}

	s.logger.Debug("resolving", "targets", len(targets), "strategy", s.strategy.String())

	if s.strategy == StrategyStrict {
		p, err := pl.strict(targets)
		if err != nil {
			return nil, err
		}
		built, err := c.commit(p)
		if err != nil {
			return nil, err
		}
		s.logCommitted(built)
		return built, nil
	}

	plans := pl.backtrack(targets)
	s.logger.Debug("candidate plans", "count", len(plans))

	agg := &AggregateBuildError{Target: targets}
	for i, p := range plans {
		built, err := c.commit(p)
		if err != nil {
			s.logger.Debug("plan rejected", "plan", i, "error", err)
			agg.Failures = append(agg.Failures, PlanFailure{Plan: i, Err: err})
			continue
		}
		s.logCommitted(built)
		return built, nil
	}
	return nil, agg
}

func (s *Store) logCommitted(built map[Key]Artifact) {
	s.logger.Info("artifacts committed", "count", len(built))
}

// Get returns the artifact for key from s asserted to T.
func Get[T any](s *Store, key Key) (T, error) {
	a, err := s.Get(key)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](map[Key]Artifact{key: a}, key)
}
