package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/traitsmith/internal/traits"
)

func loadDrawing(t *testing.T) *Schema {
	t.Helper()
	s, err := LoadFile(filepath.Join("testdata", "drawing.cue"))
	require.NoError(t, err)
	return s
}

func TestLoadFile(t *testing.T) {
	s := loadDrawing(t)

	var names []string
	for _, d := range s.Types() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Node", "Point", "Circle", "Square", "Shape", "Tag", "Origin", "Drawing"}, names)

	node, ok := s.Lookup("Node")
	require.True(t, ok)
	assert.Equal(t, DeclRecord, node.Kind)
	require.Len(t, node.Fields, 2)
	assert.Equal(t, "value", node.Fields[0].Name)
	assert.Equal(t, "ref<Node>", node.Fields[1].Type.String())
	assert.True(t, node.Pos.IsValid())

	shape, _ := s.Lookup("Shape")
	assert.Equal(t, DeclUnion, shape.Kind)
	assert.Len(t, shape.Cases, 3)

	tag, _ := s.Lookup("Tag")
	assert.Equal(t, DeclAlias, tag.Kind)
	assert.Equal(t, "string", tag.Target.String())

	origin, _ := s.Lookup("Origin")
	assert.Equal(t, DeclSingleton, origin.Kind)

	_, ok = s.Lookup("Missing")
	assert.False(t, ok)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read schema")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		field   string
		message string
	}{
		{"no types", `other: 1`, "types", "types is required"},
		{"empty types", `types: {}`, "types", "at least one type is required"},
		{"reserved", `types: "int": alias: "string"`, "types.int", "reserved type name"},
		{"no form", `types: A: {}`, "types.A", "exactly one of record"},
		{"two forms", `types: A: {record: {}, alias: "int"}`, "types.A", "found [record alias]"},
		{"unknown type", `types: A: record: x: "B"`, "types.A.record.x", `unknown type "B"`},
		{"bad expression", `types: A: alias: "list<int"`, "types.A.alias", "expected '>'"},
		{"non-string type", `types: A: record: x: 3`, "types.A.record.x", "must be a string expression"},
		{"empty union", `types: U: union: {}`, "types.U.union", "at least one case"},
		{"alias cycle", `types: {A: alias: "B", B: alias: "A"}`, "types.A.alias", "alias cycle [A B A]"},
		{"option of unit", `types: A: record: x: "option<unit>"`, "types.A.record.x", "option<unit> wraps a type whose values may be null"},
		{"ref of option", `types: A: alias: "list<ref<option<int>>>"`, "types.A.alias", "ref<option<int>> wraps"},
		{
			"option of nullable alias",
			`types: {S: singleton: true, N: alias: "S", A: record: x: "option<N>"}`,
			"types.A.record.x", "option<N> wraps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.src)
			require.Error(t, err)
			require.True(t, IsCompileError(err), "got %T: %v", err, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}

func TestCompile_CUESyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte("types: {\n\tA: alias: \n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestCompile_FieldList(t *testing.T) {
	s, err := CompileString(`
types: P: record: [
	{name: "x", type: "int"},
	{name: "y", type: "int"},
	{name: "x", type: "int"},
]
`)
	require.NoError(t, err)
	p, _ := s.Lookup("P")
	require.Len(t, p.Fields, 2, "agreeing repeat is dropped")

	_, err = CompileString(`
types: P: record: [
	{name: "x", type: "int"},
	{name: "x", type: "string"},
]
`)
	var mismatch *traits.TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "P", mismatch.Record)
	assert.Equal(t, "x", mismatch.Field)
	assert.Equal(t, "int", mismatch.First)
	assert.Equal(t, "string", mismatch.Second)
}

func TestCompile_RecursiveThroughConstructors(t *testing.T) {
	s, err := CompileString(`types: Tree: record: {label: "string", children: "list<Tree>"}`)
	require.NoError(t, err)
	tree, _ := s.Lookup("Tree")
	assert.Equal(t, "list<Tree>", tree.Fields[1].Type.String())
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "types.A", Message: "boom"}
	assert.Equal(t, "types.A: boom", err.Error())
	assert.False(t, IsCompileError(errors.New("plain")))
}
