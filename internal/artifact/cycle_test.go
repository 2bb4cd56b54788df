package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tt(name string) Key { return TypeTraitsKey(NamedType(name)) }

// TestCyclePaths_DAG tests that an acyclic plan reports no cycles.
func TestCyclePaths_DAG(t *testing.T) {
	g := prereqGraph{
		tt("A"): {tt("B"), tt("C")},
		tt("B"): {tt("C")},
		tt("C"): nil,
	}
	assert.Empty(t, cyclePaths(g))
}

func TestCyclePaths_SelfLoop(t *testing.T) {
	g := prereqGraph{tt("A"): {tt("A")}}
	assert.Equal(t, [][]Key{{tt("A"), tt("A")}}, cyclePaths(g))
}

// TestCyclePaths_IgnoresExisting tests that edges to keys outside the plan
// never close a cycle.
func TestCyclePaths_IgnoresExisting(t *testing.T) {
	g := prereqGraph{
		tt("A"): {tt("int32")},
		tt("B"): {tt("A"), tt("int32")},
	}
	assert.Empty(t, cyclePaths(g))
}

func TestCyclePaths_TwoCycles(t *testing.T) {
	g := prereqGraph{
		tt("A"): {tt("B")},
		tt("B"): {tt("A")},
		tt("C"): {tt("D"), tt("A")},
		tt("D"): {tt("E")},
		tt("E"): {tt("C")},
	}
	paths := cyclePaths(g)
	assert.Equal(t, [][]Key{
		{tt("A"), tt("B"), tt("A")},
		{tt("C"), tt("D"), tt("E"), tt("C")},
	}, paths)
	assert.Equal(t, "TypeTraits(A) -> TypeTraits(B) -> TypeTraits(A)", formatPath(paths[0]))
}

func TestPrerequisiteClosure(t *testing.T) {
	closure := prerequisiteClosure(map[Key][]Key{
		tt("Node"): {tt("Box"), tt("int32")},
		tt("Box"):  {tt("Node")},
		tt("List"): {tt("Node")},
	})

	assert.True(t, closure[tt("Node")][tt("Node")])
	assert.True(t, closure[tt("Box")][tt("Box")])
	assert.False(t, closure[tt("List")][tt("List")], "reaches the cycle but is not on it")
	assert.True(t, closure[tt("List")][tt("int32")])
	assert.Nil(t, closure[tt("int32")])
}
