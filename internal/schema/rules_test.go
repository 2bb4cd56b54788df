package schema

import (
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/traitsmith/internal/artifact"
	"github.com/roach88/traitsmith/internal/ir"
	"github.com/roach88/traitsmith/internal/traits"
)

func newStore(t *testing.T, s *Schema) *artifact.Store {
	t.Helper()
	return artifact.NewStore(nil,
		artifact.WithSupplier(s),
		artifact.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func drawingTraits(t *testing.T, expr string) traits.Traits[ir.Value] {
	t.Helper()
	s := loadDrawing(t)
	tr, err := s.Traits(newStore(t, s), expr)
	require.NoError(t, err)
	return tr
}

func point(x, y int) ir.Record {
	return ir.R("x", ir.Int(x), "y", ir.Int(y))
}

func sampleDrawing() ir.Record {
	return ir.R(
		"title", ir.String("plan"),
		"shapes", ir.List{
			ir.Variant{Case: "circle", Value: ir.R("center", point(0, 0), "radius", ir.Int(2))},
			ir.Variant{Case: "empty", Value: ir.Null{}},
			ir.Variant{Case: "square", Value: ir.R("corner", point(1, -1), "side", ir.Int(3))},
		},
		"labels", ir.List{ir.String("b"), ir.String("a"), ir.String("b")},
		"note", ir.Null{},
		"thumb", ir.Bytes{0xCA, 0xFE},
		"origin", ir.Null{},
	)
}

func TestTraits_RoundTrip(t *testing.T) {
	tr := drawingTraits(t, "Drawing")
	in := sampleDrawing()

	data, err := traits.Marshal(tr, ir.Value(in))
	require.NoError(t, err)
	size, err := traits.Measure(tr, ir.Value(in))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	out, err := traits.Unmarshal(tr, data)
	require.NoError(t, err)
	assert.True(t, traits.Equal(tr, ir.Value(in), out))
	assert.Equal(t, traits.BasicHash(tr, ir.Value(in)), traits.BasicHash(tr, out))

	rec := out.(ir.Record)
	assert.Equal(t, ir.List{ir.String("a"), ir.String("b")}, rec["labels"], "sets decode ordered and deduplicated")
	assert.Equal(t, ir.Null{}, rec["note"])
}

func TestTraits_PointSize(t *testing.T) {
	tr := drawingTraits(t, "Point")
	size, err := traits.Measure(tr, ir.Value(point(3, 4)))
	require.NoError(t, err)
	assert.Equal(t, int64(8), size, "two int32 fields")
}

func TestTraits_Guards(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		value ir.Value
	}{
		{"int32 overflow", "Point", point(1<<31, 0)},
		{"wrong scalar", "int", ir.String("7")},
		{"missing field", "Point", ir.R("x", ir.Int(1))},
		{"unknown field", "Point", ir.R("x", ir.Int(1), "y", ir.Int(2), "z", ir.Int(3))},
		{"unknown case", "Shape", ir.Variant{Case: "hexagon", Value: ir.Null{}}},
		{"not a record", "Point", ir.List{}},
		{"ref to a non-cell", "ref<Point>", point(1, 2)},
		{"singleton payload", "Origin", ir.Int(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := drawingTraits(t, tt.expr)
			assert.False(t, tr.CanSerialize(tt.value))
			_, err := traits.Marshal(tr, tt.value)
			require.Error(t, err)
			_, err = traits.Measure(tr, tt.value)
			require.Error(t, err)
		})
	}
}

func TestTraits_CyclicNode(t *testing.T) {
	tr := drawingTraits(t, "ref<Node>")

	loop := ir.NewCell(nil)
	loop.Value = ir.R("value", ir.Int(1), "next", loop)

	data, err := traits.Marshal(tr, ir.Value(loop))
	require.NoError(t, err)
	assert.Len(t, data, 16, "id, int64 payload and the back reference")

	out, err := traits.Unmarshal(tr, data)
	require.NoError(t, err)
	cell, ok := out.(*ir.Cell)
	require.True(t, ok)
	assert.NotSame(t, loop, cell)
	assert.Same(t, cell, cell.Value.(ir.Record)["next"])
	assert.True(t, traits.Analogous(tr, ir.Value(loop), out))

	clone, err := traits.Clone(tr, ir.Value(loop))
	require.NoError(t, err)
	assert.Same(t, clone, clone.(*ir.Cell).Value.(ir.Record)["next"])
	assert.True(t, traits.Analogous(tr, ir.Value(loop), clone))
	assert.False(t, traits.Equal(tr, ir.Value(loop), clone), "refs compare by identity")
}

func TestTraits_SharingIsObserved(t *testing.T) {
	tr := drawingTraits(t, "list<ref<Point>>")

	p := ir.NewCell(point(1, 2))
	shared := ir.List{p, p}
	distinct := ir.List{ir.NewCell(point(1, 2)), ir.NewCell(point(1, 2))}

	assert.False(t, traits.Analogous(tr, ir.Value(shared), ir.Value(distinct)))

	data, err := traits.Marshal(tr, ir.Value(shared))
	require.NoError(t, err)
	out, err := traits.Unmarshal(tr, data)
	require.NoError(t, err)
	got := out.(ir.List)
	assert.Same(t, got[0], got[1])
}

func TestTraits_NullRef(t *testing.T) {
	tr := drawingTraits(t, "ref<Point>")
	data, err := traits.Marshal(tr, ir.Value(ir.Null{}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, data, "null reference is id -1")

	out, err := traits.Unmarshal(tr, data)
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, out)
}

func TestTraits_Comparator(t *testing.T) {
	s := loadDrawing(t)
	store := newStore(t, s)
	cmp, err := artifact.Get[func(a, b ir.Value) int](store,
		artifact.ComparatorKey(TypeRef(MustParseType("Shape"))))
	require.NoError(t, err)

	shapes := []ir.Value{
		ir.Variant{Case: "empty", Value: ir.Null{}},
		ir.Variant{Case: "square", Value: ir.R("corner", point(0, 0), "side", ir.Int(1))},
		ir.Variant{Case: "circle", Value: ir.R("center", point(0, 0), "radius", ir.Int(9))},
		ir.Variant{Case: "circle", Value: ir.R("center", point(0, 0), "radius", ir.Int(1))},
	}
	slices.SortFunc(shapes, cmp)

	var order []string
	for _, v := range shapes {
		order = append(order, v.(ir.Variant).Case)
	}
	assert.Equal(t, []string{"circle", "circle", "square", "empty"}, order, "declaration order of cases")
	assert.Equal(t, ir.Int(1), shapes[0].(ir.Variant).Value.(ir.Record)["radius"])
}

func TestTraits_BuildsEachKeyOnce(t *testing.T) {
	s := loadDrawing(t)
	store := newStore(t, s)

	first, err := s.Traits(store, "Drawing")
	require.NoError(t, err)
	n := store.Len()
	again, err := s.Traits(store, "Drawing")
	require.NoError(t, err)
	assert.Equal(t, n, store.Len())
	assert.NotNil(t, first)
	assert.NotNil(t, again)

	assert.True(t, store.Has(TraitsKey(MustParseType("list<Shape>"))))
	assert.True(t, store.Has(artifact.FieldKey(TypeRef(MustParseType("Circle")), "center")))
}

func TestTraits_UnknownType(t *testing.T) {
	s := loadDrawing(t)
	store := newStore(t, s)

	_, err := s.Traits(store, "Hexagon")
	assert.ErrorContains(t, err, `unknown type "Hexagon"`)
	_, err = s.Traits(store, "list<")
	assert.Error(t, err)
}

func TestTraits_DebugStringGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	drawing := drawingTraits(t, "Drawing")
	node := drawingTraits(t, "ref<Node>")

	loop := ir.NewCell(nil)
	loop.Value = ir.R("value", ir.Int(1), "next", loop)

	out := traits.DebugString(drawing, ir.Value(sampleDrawing())) + "\n" +
		traits.DebugString(node, ir.Value(loop)) + "\n"
	g.Assert(t, "debug_strings", []byte(out))
}
