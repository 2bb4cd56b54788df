package artifact

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constRule builds one key from fixed prerequisites by joining their
// string artifacts.
type constRule struct {
	name    string
	key     Key
	prereqs []Key
	err     error
	builds  int
}

func (r *constRule) CanBuild(k Key) bool            { return k == r.key }
func (r *constRule) Prerequisites(Key) []Key        { return r.prereqs }
func (r *constRule) String() string                 { return r.name }
func (r *constRule) NewPlaceholder(Key) Placeholder { return &cell{} }

func (r *constRule) Build(_ Key, available map[Key]Artifact) (Artifact, error) {
	r.builds++
	if r.err != nil {
		return nil, r.err
	}
	out := r.name
	for _, k := range r.prereqs {
		switch a := available[k].(type) {
		case string:
			out += "+" + a
		case *cell:
			out += "+@" + k.Type().Name()
		}
	}
	return out, nil
}

// cell is a minimal set-once placeholder.
type cell struct {
	value Artifact
	set   bool
}

func (c *cell) Resolve(a Artifact) error {
	if c.set {
		return errors.New("already resolved")
	}
	c.value, c.set = a, true
	return nil
}

// noFactory hides the placeholder factory of the rule it wraps.
type noFactory struct{ r *constRule }

func (n noFactory) CanBuild(k Key) bool                                { return n.r.CanBuild(k) }
func (n noFactory) Prerequisites(k Key) []Key                          { return n.r.Prerequisites(k) }
func (n noFactory) Build(k Key, av map[Key]Artifact) (Artifact, error) { return n.r.Build(k, av) }

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStore_GetBuildsPrerequisites(t *testing.T) {
	a := &constRule{name: "a", key: tt("A"), prereqs: []Key{tt("B"), tt("C")}}
	b := &constRule{name: "b", key: tt("B"), prereqs: []Key{tt("C")}}
	s := NewStore([]Rule{a, b}, quiet())
	s.Add(tt("C"), "c")

	got, err := s.Get(tt("A"))
	require.NoError(t, err)
	assert.Equal(t, "a+b+c+c", got)
	assert.Equal(t, []Key{tt("A"), tt("B"), tt("C")}, s.Keys())

	_, err = s.Get(tt("A"))
	require.NoError(t, err)
	assert.Equal(t, 1, a.builds)
	assert.Equal(t, 1, b.builds)
}

func TestStore_GenericGet(t *testing.T) {
	s := NewStore([]Rule{&constRule{name: "a", key: tt("A")}}, quiet())

	v, err := Get[string](s, tt("A"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	_, err = Get[int](s, tt("A"))
	assert.ErrorContains(t, err, "is string, want int")
}

func TestStore_ResolveReturnsOnlyNew(t *testing.T) {
	s := NewStore([]Rule{
		&constRule{name: "a", key: tt("A"), prereqs: []Key{tt("B")}},
		&constRule{name: "b", key: tt("B")},
	}, quiet())

	built, err := s.Resolve(tt("B"))
	require.NoError(t, err)
	assert.Len(t, built, 1)

	built, err = s.Resolve(tt("A"), tt("B"))
	require.NoError(t, err)
	assert.Equal(t, map[Key]Artifact{tt("A"): "a+b"}, built)
}

// TestStore_FailedCommitLeavesNoTrace tests that artifacts built by a plan
// that later fails are discarded.
func TestStore_FailedCommitLeavesNoTrace(t *testing.T) {
	b := &constRule{name: "b", key: tt("B")}
	s := NewStore([]Rule{
		&constRule{name: "a", key: tt("A"), prereqs: []Key{tt("B")}, err: errors.New("boom")},
		b,
	}, quiet())

	_, err := s.Get(tt("A"))
	require.Error(t, err)
	assert.Equal(t, 1, b.builds)
	assert.False(t, s.Has(tt("B")))
	assert.Equal(t, 0, s.Len())
}

func TestStore_Cycle(t *testing.T) {
	a := &constRule{name: "a", key: tt("A"), prereqs: []Key{tt("B")}}
	b := &constRule{name: "b", key: tt("B"), prereqs: []Key{tt("A")}}

	t.Run("placeholders", func(t *testing.T) {
		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
		s := NewStore([]Rule{a, b}, WithLogger(logger))

		got, err := s.Get(tt("A"))
		require.NoError(t, err)
		// A sorts first and is built against B's placeholder.
		assert.Equal(t, "a+@B", got)
		assert.True(t, s.Has(tt("B")))
		assert.Contains(t, logs.String(), "TypeTraits(A) -> TypeTraits(B) -> TypeTraits(A)")
	})

	t.Run("no factory", func(t *testing.T) {
		s := NewStore([]Rule{noFactory{a}, noFactory{b}}, quiet())
		_, err := s.Get(tt("A"))
		var ce *CycleError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, tt("A"), ce.Key)
	})
}

// TestCommit_NoProgress tests the guard against a sweep that builds
// nothing.
func TestCommit_NoProgress(t *testing.T) {
	rules := []Rule{&constRule{name: "a", key: tt("A"), prereqs: []Key{tt("Missing")}}}
	c := &committer{
		rules:  rules,
		fixups: RuleFixups{},
		lookup: func(Key) (Artifact, bool) { return nil, false },
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	p := newPlan(nil)
	p.chosen[tt("A")] = 0
	p.prereqs[tt("A")] = []Key{tt("Missing")}

	_, err := c.commit(p)
	assert.True(t, IsNoProgress(err))
	assert.ErrorContains(t, err, "no progress building TypeTraits(A)")
}

func TestRuleFixups_NilPlaceholder(t *testing.T) {
	_, err := RuleFixups{}.NewPlaceholder(tt("A"), nilFactory{})
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Rule, "nilFactory")
}

type nilFactory struct{ noFactory }

func (nilFactory) NewPlaceholder(Key) Placeholder { return nil }

func TestWithSupplier(t *testing.T) {
	s := NewStore(nil, quiet(), WithSupplier(Rules{&constRule{name: "a", key: tt("A")}}))
	got, err := s.Get(tt("A"))
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}

func TestStrategy_String(t *testing.T) {
	assert.Equal(t, "backtracking", StrategyBacktracking.String())
	assert.Equal(t, "strict", StrategyStrict.String())
}
