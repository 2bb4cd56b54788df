package traits

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	Value int32
	Next  *Box[node]
}

// nodeTraits ties the knot the way a store does for a record that reaches
// itself through a box.
func nodeTraits(t *testing.T) Traits[node] {
	t.Helper()
	self := NewRecursive[node]()
	rec := mustRecord(t, "node",
		NewField("value", Int32(),
			func(n node) int32 { return n.Value },
			func(n *node, v int32) { n.Value = v }),
		NewField("next", BoxTraits[node](self),
			func(n node) *Box[node] { return n.Next },
			func(n *node, b *Box[node]) { n.Next = b }))
	require.NoError(t, self.Set(rec))
	return self
}

func selfLoop(v int32) *Box[node] {
	b := NewBox(node{Value: v})
	b.Value.Next = b
	return b
}

func TestBox_SelfCycle(t *testing.T) {
	tr := BoxTraits(nodeTraits(t))
	b := selfLoop(1)

	data, err := Marshal(tr, b)
	require.NoError(t, err)
	// id 0, then the deferred payload: value 1 and a back reference to id 0.
	assert.Equal(t, "00000000"+"01000000"+"00000000", hex.EncodeToString(data))

	n, err := Measure(tr, b)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	got, err := Unmarshal(tr, data)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int32(1), got.Value.Value)
	assert.Same(t, got, got.Value.Next, "decoded box contains itself")

	assert.True(t, Analogous(tr, b, got))
	assert.False(t, Equal(tr, b, got), "decoded boxes get fresh identities")
	assert.NotEqual(t, b.ID(), got.ID())
}

func TestBox_TwoCycle(t *testing.T) {
	tr := BoxTraits(nodeTraits(t))
	a := NewBox(node{Value: 1})
	b := NewBox(node{Value: 2, Next: a})
	a.Value.Next = b

	data, err := Marshal(tr, a)
	require.NoError(t, err)

	got, err := Unmarshal(tr, data)
	require.NoError(t, err)
	second := got.Value.Next
	require.NotNil(t, second)
	assert.Equal(t, int32(2), second.Value.Value)
	assert.Same(t, got, second.Value.Next)
	assert.True(t, Analogous(tr, a, got))
}

func TestBox_Sharing(t *testing.T) {
	tr := NewList(BoxTraits(Int32()))
	b := NewBox[int32](5)
	in := []*Box[int32]{b, b, nil}

	data, err := Marshal(tr, in)
	require.NoError(t, err)
	assert.Equal(t, "03000000"+"00000000"+"00000000"+"ffffffff"+"05000000", hex.EncodeToString(data))

	n, err := Measure(tr, in)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	got, err := Unmarshal(tr, data)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Same(t, got[0], got[1])
	assert.Nil(t, got[2])
	assert.Equal(t, int32(5), got[0].Value)
	assert.True(t, Analogous(tr, in, got))
}

func TestBox_AnalogyRequiresBijection(t *testing.T) {
	tr := NewList(BoxTraits(Int32()))
	shared := NewBox[int32](5)
	x, y := NewBox[int32](5), NewBox[int32](5)

	assert.False(t, Analogous(tr, []*Box[int32]{shared, shared}, []*Box[int32]{x, y}))
	assert.False(t, Analogous(tr, []*Box[int32]{x, y}, []*Box[int32]{shared, shared}))
	assert.True(t, Analogous(tr, []*Box[int32]{x, y}, []*Box[int32]{y, x}))
	assert.False(t, Analogous(tr, []*Box[int32]{x}, []*Box[int32]{nil}))
	assert.False(t, Analogous(tr, []*Box[int32]{x}, []*Box[int32]{NewBox[int32](6)}))
}

func TestBox_CompareByIdentity(t *testing.T) {
	tr := BoxTraits(Int32())
	a, b := NewBox[int32](1), NewBox[int32](1)

	assert.NotZero(t, tr.Compare(a, b), "same payload, different identity")
	assert.NotEqual(t, BasicHash(tr, a), BasicHash(tr, b))

	a.Value = 99
	assert.Zero(t, tr.Compare(a, a))
	assert.Negative(t, tr.Compare(nil, a))

	// Identity alone drives the hash, so mutation does not change it.
	before := BasicHash(tr, b)
	b.Value = 42
	assert.Equal(t, before, BasicHash(tr, b))
}

func TestBox_CompareTerminatesOnCycles(t *testing.T) {
	tr := BoxTraits(nodeTraits(t))
	a, b := selfLoop(1), selfLoop(1)

	assert.NotZero(t, tr.Compare(a, b))
	assert.NotPanics(t, func() { BasicHash(tr, a) })
}

func TestBox_Clone(t *testing.T) {
	tr := BoxTraits(nodeTraits(t))
	b := selfLoop(7)

	c, err := Clone(tr, b)
	require.NoError(t, err)
	assert.NotSame(t, b, c)
	assert.Same(t, c, c.Value.Next, "clone keeps the cycle")
	assert.Equal(t, int32(7), c.Value.Value)
	assert.True(t, Analogous(tr, b, c))

	// The copy is independent of the source.
	c.Value.Value = 8
	assert.Equal(t, int32(7), b.Value.Value)
}

func TestBox_IdsArePerTraversal(t *testing.T) {
	tr := BoxTraits(Int32())
	b := NewBox[int32](3)

	first, err := Marshal(tr, b)
	require.NoError(t, err)
	second, err := Marshal(tr, b)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBox_OutOfSequenceID(t *testing.T) {
	_, err := Unmarshal(BoxTraits(Int32()), []byte{1, 0, 0, 0, 5, 0, 0, 0})
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
	assert.Contains(t, err.Error(), "reference id 1 out of sequence, expected 0")
}

func TestBox_PayloadGuard(t *testing.T) {
	tr := BoxTraits(FixedBytes(2))

	assert.True(t, tr.CanSerialize(NewBox([]byte{1})), "payload is checked when it is written")
	_, err := Marshal(tr, NewBox([]byte{1}))
	assert.True(t, IsGuardViolation(err))
}

func TestRecursive(t *testing.T) {
	t.Run("unset panics", func(t *testing.T) {
		r := NewRecursive[int32]()
		assert.False(t, r.Resolved())
		assert.PanicsWithValue(t, ErrUnresolved, func() { r.Compare(1, 2) })
	})

	t.Run("set once", func(t *testing.T) {
		r := NewRecursive[int32]()
		require.NoError(t, r.Set(Int32()))
		assert.True(t, r.Resolved())
		assert.ErrorIs(t, r.Set(Int32()), ErrAlreadyResolved)
		assert.ErrorIs(t, r.Resolve(Int32()), ErrAlreadyResolved)
		assert.Negative(t, r.Compare(1, 2))
	})

	t.Run("wrong artifact type", func(t *testing.T) {
		r := NewRecursive[int32]()
		err := r.Resolve(String())
		assert.ErrorContains(t, err, "resolved with")
		assert.False(t, r.Resolved())
	})
}

func TestRecursiveField(t *testing.T) {
	f := NewRecursiveField[node]("value", "int32")
	assert.Equal(t, "value", f.Name())
	assert.Equal(t, "int32", f.TypeName())

	wrong := NewField("other", Int32(), func(n node) int32 { return n.Value }, func(n *node, v int32) { n.Value = v })
	assert.Error(t, f.Resolve(wrong))

	resolved := NewField("value", Int32(), func(n node) int32 { return n.Value }, func(n *node, v int32) { n.Value = v })
	require.NoError(t, f.Resolve(resolved))
	assert.ErrorIs(t, f.Resolve(resolved), ErrAlreadyResolved)

	rec := mustRecord[node](t, "counter", f)
	checkRoundTrip[node](t, rec, node{Value: 11})
}
