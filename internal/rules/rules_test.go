package rules

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/traitsmith/internal/artifact"
	"github.com/roach88/traitsmith/internal/testutil"
	"github.com/roach88/traitsmith/internal/traits"
)

type celsius float64

type kelvin float64

type node struct {
	Value int32
	Next  *traits.Box[node]
}

type shape interface{ isShape() }

type circle struct{ Radius int32 }

type square struct{ Side int32 }

func (circle) isShape() {}
func (square) isShape() {}

// stubRule claims one key and returns a canned result.
type stubRule struct {
	name    string
	key     artifact.Key
	prereqs []artifact.Key
	value   artifact.Artifact
	err     error
}

func (r *stubRule) CanBuild(k artifact.Key) bool              { return k == r.key }
func (r *stubRule) Prerequisites(artifact.Key) []artifact.Key { return r.prereqs }
func (r *stubRule) String() string                            { return r.name }

func (r *stubRule) Build(artifact.Key, map[artifact.Key]artifact.Artifact) (artifact.Artifact, error) {
	return r.value, r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, catalog []artifact.Rule, opts ...artifact.Option) *artifact.Store {
	t.Helper()
	s := artifact.NewStore(catalog, append([]artifact.Option{artifact.WithLogger(discardLogger())}, opts...)...)
	Seed(s)
	return s
}

func nodeRules(t *testing.T) []artifact.Rule {
	t.Helper()
	rec, err := Record("node", []FieldSpec[node]{
		FieldOf("value", func(n node) int32 { return n.Value }, func(n *node, v int32) { n.Value = v }),
		FieldOf("next", func(n node) *traits.Box[node] { return n.Next }, func(n *node, b *traits.Box[node]) { n.Next = b }),
	})
	require.NoError(t, err)
	return append(rec, Box[node]())
}

func TestScenarioA_PairBuildsOnce(t *testing.T) {
	pair := testutil.NewCountingRule(Pair[int32, string]())
	s := artifact.NewStore([]artifact.Rule{pair}, artifact.WithLogger(discardLogger()))
	s.Add(TypeKey[int32](), traits.Int32())
	s.Add(TypeKey[string](), traits.String())

	key := TypeKey[traits.Pair[int32, string]]()
	built, err := s.Resolve(key)
	require.NoError(t, err)

	require.Len(t, built, 1)
	assert.Contains(t, built, key)
	assert.Equal(t, 1, pair.Builds(key))
	assert.Equal(t, 3, s.Len())

	tr, err := TraitsFor[traits.Pair[int32, string]](s)
	require.NoError(t, err)
	assert.Equal(t, `(pair 7, "seven")`, traits.DebugString(tr, traits.MakePair(int32(7), "seven")))

	// Cached now: resolving again builds nothing.
	built, err = s.Resolve(key)
	require.NoError(t, err)
	assert.Empty(t, built)
	assert.Equal(t, 1, pair.TotalBuilds())
}

func TestScenarioB_AmbiguityUnbuildablePrerequisite(t *testing.T) {
	// The first rule in catalog order needs kelvin, which nothing builds.
	viaKelvin := testutil.NewCountingRule(Convert(
		func(c celsius) kelvin { return kelvin(c + 273.15) },
		func(k kelvin) celsius { return celsius(k - 273.15) }))
	viaFloat := testutil.NewCountingRule(Convert(
		func(c celsius) float64 { return float64(c) },
		func(f float64) celsius { return celsius(f) }))
	s := newStore(t, []artifact.Rule{viaKelvin, viaFloat})

	tr, err := TraitsFor[celsius](s)
	require.NoError(t, err, "the failed fork must not surface")

	key := TypeKey[celsius]()
	assert.Equal(t, 0, viaKelvin.Builds(key))
	assert.Equal(t, 1, viaFloat.Builds(key))
	assert.False(t, s.Has(TypeKey[kelvin]()))

	data, err := traits.Marshal(tr, 21.5)
	require.NoError(t, err)
	assert.Len(t, data, 8)
}

func TestScenarioB_AmbiguityBuildError(t *testing.T) {
	key := TypeKey[celsius]()
	broken := testutil.NewCountingRule(&stubRule{
		name:    "broken",
		key:     key,
		prereqs: []artifact.Key{TypeKey[float64]()},
		err:     errors.New("refusing to build"),
	})
	working := testutil.NewCountingRule(Convert(
		func(c celsius) float64 { return float64(c) },
		func(f float64) celsius { return celsius(f) }))
	s := newStore(t, []artifact.Rule{broken, working})

	_, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, 1, broken.Builds(key), "first fork was tried")
	assert.Equal(t, 1, working.Builds(key))
	assert.NoError(t, s.Failure(key))
}

func TestAllPlansFail(t *testing.T) {
	key := TypeKey[celsius]()
	buildErr := errors.New("refusing to build")
	s := newStore(t, []artifact.Rule{
		&stubRule{name: "broken", key: key, err: buildErr},
		&stubRule{name: "orphan", key: key, prereqs: []artifact.Key{TypeKey[kelvin]()}},
	})

	_, err := s.Get(key)
	var agg *artifact.AggregateBuildError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Failures, 2)
	assert.ErrorIs(t, err, buildErr)
	assert.True(t, artifact.IsUnresolvable(err))

	var be *artifact.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "broken", be.Rule)
	assert.Equal(t, key, be.Key)
}

func TestScenarioC_CycleUsesOnePlaceholderPerKey(t *testing.T) {
	fixups := testutil.NewCountingFixups(nil)
	s := newStore(t, nodeRules(t), artifact.WithFixups(fixups))

	tr, err := TraitsFor[node](s)
	require.NoError(t, err)

	nodeKey := TypeKey[node]()
	nextKey := artifact.FieldKey(artifact.TypeOf[node](), "next")
	boxKey := TypeKey[*traits.Box[node]]()
	assert.Equal(t, artifact.SortKeys([]artifact.Key{nodeKey, nextKey, boxKey}), fixups.Keys())

	for _, k := range fixups.Keys() {
		assert.Equal(t, 1, fixups.Created(k), "placeholders for %s", k)
		ph := fixups.Placeholders(k)[0]
		resolved, ok := ph.(interface{ Resolved() bool })
		require.True(t, ok, "%T reports resolution", ph)
		assert.True(t, resolved.Resolved(), "%s back-patched", k)
		assert.ErrorIs(t, ph.Resolve(nil), traits.ErrAlreadyResolved, "%s back-patched once", k)
	}
	assert.Zero(t, fixups.Created(artifact.FieldKey(artifact.TypeOf[node](), "value")))

	boxes, err := TraitsFor[*traits.Box[node]](s)
	require.NoError(t, err)
	loop := traits.NewBox(node{Value: 3})
	loop.Value.Next = loop

	data, err := traits.Marshal(boxes, loop)
	require.NoError(t, err)
	got, err := traits.Unmarshal(boxes, data)
	require.NoError(t, err)
	assert.Same(t, got, got.Value.Next)
	assert.True(t, traits.Analogous(boxes, loop, got))

	assert.Equal(t, "(rec node, value = 3, next = (box nil))", traits.DebugString(tr, node{Value: 3}))
}

func TestNegativeCacheReplay(t *testing.T) {
	key := TypeKey[celsius]()
	broken := testutil.NewCountingRule(&stubRule{name: "broken", key: key, err: errors.New("no")})
	s := newStore(t, []artifact.Rule{broken})

	_, first := s.Get(key)
	require.Error(t, first)
	_, second := s.Get(key)
	require.Error(t, second)

	assert.Equal(t, first.Error(), second.Error())
	assert.Equal(t, 1, broken.Builds(key), "replayed without building")
	assert.Equal(t, first, s.Failure(key))

	// Resolve bypasses the failure cache.
	_, err := s.Resolve(key)
	require.Error(t, err)
	assert.Equal(t, 2, broken.Builds(key))

	// Seeding the key clears the failure.
	s.Add(key, traits.NewConvert(traits.Float64(),
		func(c celsius) float64 { return float64(c) },
		func(f float64) celsius { return celsius(f) }))
	assert.NoError(t, s.Failure(key))
	_, err = TraitsFor[celsius](s)
	assert.NoError(t, err)
}

func TestFailureCachedOnlyForRequestedKey(t *testing.T) {
	// pair(celsius, int32) fails because celsius has no rule.
	s := newStore(t, []artifact.Rule{Pair[celsius, int32]()})

	_, err := TraitsFor[traits.Pair[celsius, int32]](s)
	require.Error(t, err)
	assert.True(t, artifact.IsUnresolvable(err))

	assert.Error(t, s.Failure(TypeKey[traits.Pair[celsius, int32]]()))
	assert.NoError(t, s.Failure(TypeKey[celsius]()))
}

func TestStrictStrategy(t *testing.T) {
	viaFloat := Convert(func(c celsius) float64 { return float64(c) }, func(f float64) celsius { return celsius(f) })
	viaString := Convert(func(c celsius) string { return "" }, func(string) celsius { return 0 })

	t.Run("single candidate", func(t *testing.T) {
		s := newStore(t, []artifact.Rule{viaFloat, Option[celsius]()}, artifact.WithStrategy(artifact.StrategyStrict))
		_, err := TraitsFor[traits.Option[celsius]](s)
		assert.NoError(t, err)
	})

	t.Run("ambiguous", func(t *testing.T) {
		s := newStore(t, []artifact.Rule{viaFloat, viaString}, artifact.WithStrategy(artifact.StrategyStrict))
		_, err := TraitsFor[celsius](s)

		var ue *artifact.UnresolvableKeysError
		require.ErrorAs(t, err, &ue)
		require.Len(t, ue.Keys, 1)
		assert.Equal(t, TypeKey[celsius](), ue.Keys[0].Key)
		assert.Equal(t, []int{0, 1}, ue.Keys[0].Candidates)
	})

	t.Run("backtracking picks catalog order", func(t *testing.T) {
		s := newStore(t, []artifact.Rule{viaFloat, viaString})
		tr, err := TraitsFor[celsius](s)
		require.NoError(t, err)
		data, err := traits.Marshal(tr, 1)
		require.NoError(t, err)
		assert.Len(t, data, 8, "encoded as float64")
	})
}

func TestCycleWithoutPlaceholder(t *testing.T) {
	a, b := TypeKey[celsius](), TypeKey[kelvin]()
	s := newStore(t, []artifact.Rule{
		&stubRule{name: "a", key: a, prereqs: []artifact.Key{b}},
		&stubRule{name: "b", key: b, prereqs: []artifact.Key{a}},
	})

	_, err := s.Get(a)
	var ce *artifact.CycleError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, []string{"a", "b"}, ce.Rule)
}

func TestRecord_TypeMismatch(t *testing.T) {
	_, err := Record("row", []FieldSpec[node]{
		FieldOf("x", func(n node) int32 { return n.Value }, func(n *node, v int32) { n.Value = v }),
		FieldOf("x", func(n node) *traits.Box[node] { return n.Next }, func(n *node, b *traits.Box[node]) { n.Next = b }),
	})

	var tm *traits.TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "x", tm.Field)
	assert.Equal(t, "int32", tm.First)
}

func TestRecord_RepeatedFieldAgrees(t *testing.T) {
	value := FieldOf("value", func(n node) int32 { return n.Value }, func(n *node, v int32) { n.Value = v })
	rs, err := Record("counter", []FieldSpec[node]{value, value})
	require.NoError(t, err)
	assert.Len(t, rs, 2, "record rule plus one field rule")
}

func TestRecord_Constructor(t *testing.T) {
	type tagged struct {
		N   int32
		Tag string
	}
	rs, err := Record("tagged", []FieldSpec[tagged]{
		FieldOf("n", func(v tagged) int32 { return v.N }, func(v *tagged, n int32) { v.N = n }),
	}, WithConstructor(func() tagged { return tagged{Tag: "fresh"} }))
	require.NoError(t, err)

	s := newStore(t, rs)
	tr, err := TraitsFor[tagged](s)
	require.NoError(t, err)

	data, err := traits.Marshal(tr, tagged{N: 4, Tag: "old"})
	require.NoError(t, err)
	got, err := traits.Unmarshal(tr, data)
	require.NoError(t, err)
	assert.Equal(t, tagged{N: 4, Tag: "fresh"}, got)
}

func shapeCatalog(t *testing.T) []artifact.Rule {
	t.Helper()
	circles, err := Record("circle", []FieldSpec[circle]{
		FieldOf("radius", func(c circle) int32 { return c.Radius }, func(c *circle, v int32) { c.Radius = v }),
	})
	require.NoError(t, err)
	squares, err := Record("square", []FieldSpec[square]{
		FieldOf("side", func(s square) int32 { return s.Side }, func(s *square, v int32) { s.Side = v }),
	})
	require.NoError(t, err)
	union, err := Union("shape", CaseOf[shape, circle]("circle"), CaseOf[shape, square]("square"))
	require.NoError(t, err)
	return slices.Concat(circles, squares, []artifact.Rule{union, List[shape](), Comparator[shape]()})
}

func TestUnion(t *testing.T) {
	s := newStore(t, shapeCatalog(t))

	list, err := TraitsFor[[]shape](s)
	require.NoError(t, err)
	value := []shape{square{Side: 2}, circle{Radius: 1}}
	assert.Equal(t,
		"(list (case square, (rec square, side = 2)), (case circle, (rec circle, radius = 1)))",
		traits.DebugString(list, value))

	data, err := traits.Marshal(list, value)
	require.NoError(t, err)
	got, err := traits.Unmarshal(list, data)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	order, err := ComparatorFor[shape](s)
	require.NoError(t, err)
	sorted := slices.Clone(value)
	slices.SortFunc(sorted, order)
	assert.Equal(t, []shape{circle{Radius: 1}, square{Side: 2}}, sorted)
}

func TestUnion_Invalid(t *testing.T) {
	_, err := Union("shape", CaseOf[shape, int32]("number"))
	assert.ErrorContains(t, err, "not assignable")

	_, err = Union("shape", CaseOf[shape, circle]("c"), CaseOf[shape, square]("c"))
	assert.ErrorContains(t, err, `duplicate case "c"`)
}

func TestCompositeRules(t *testing.T) {
	s := newStore(t, []artifact.Rule{
		Map[string, []int64](),
		List[int64](),
		Set[string](),
		Singleton("origin", struct{}{}),
		Fixed(traits.FixedBytes(4)),
	})

	m, err := TraitsFor[map[string][]int64](s)
	require.NoError(t, err)
	assert.Equal(t, "(map (\"a\": (list 1, 2)))", traits.DebugString(m, map[string][]int64{"a": {1, 2}}))

	set, err := TraitsFor[traits.Set[string]](s)
	require.NoError(t, err)
	assert.Equal(t, `(set "x", "y")`, traits.DebugString(set, traits.NewSet(traits.String(), "y", "x")))

	origin, err := TraitsFor[struct{}](s)
	require.NoError(t, err)
	assert.Equal(t, "(origin)", traits.DebugString(origin, struct{}{}))

	fixed, err := TraitsFor[[]byte](s)
	require.NoError(t, err, "the seeded variable-length traits win over later rules")
	data, err := traits.Marshal(fixed, []byte{1})
	require.NoError(t, err)
	assert.Len(t, data, 5, "int32 length prefix plus payload")
}

func TestUnbuildableKey(t *testing.T) {
	s := newStore(t, nil)

	_, err := TraitsFor[celsius](s)
	assert.True(t, artifact.IsUnresolvable(err))
	assert.ErrorContains(t, err, "no applicable rule")
}
