package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{nil, "nothing"},
		{Null{}, "null"},
		{String("s"), "string"},
		{Int(1), "int"},
		{Bool(true), "bool"},
		{Bytes{1}, "bytes"},
		{List{}, "list"},
		{Record{}, "record"},
		{Variant{Case: "c", Value: Null{}}, "variant"},
		{NewCell(Int(1)), "ref"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.value))
	}
}

func TestNewCell_Identity(t *testing.T) {
	a, b := NewCell(Int(1)), NewCell(Int(1))
	assert.NotEqual(t, a.ID(), b.ID(), "fresh cells never share an identity")
	assert.Equal(t, 7, int(a.ID().Version()), "time-ordered UUIDv7")
}

func TestWalk_FollowsCellsOnce(t *testing.T) {
	loop := NewCell(nil)
	loop.Value = List{Int(1), loop, Variant{Case: "x", Value: loop}}

	var kinds []string
	Walk(R("head", loop), func(v Value) { kinds = append(kinds, Kind(v)) })
	assert.Equal(t, []string{"record", "ref", "list", "int", "ref", "variant", "ref"}, kinds)
	assert.True(t, HasCells(loop))
	assert.False(t, HasCells(List{Int(1), R("a", String("b"))}))
}

func TestR(t *testing.T) {
	rec := R("b", Int(2), "a", Int(1))
	assert.Equal(t, Record{"a": Int(1), "b": Int(2)}, rec)
	assert.Equal(t, []string{"a", "b"}, rec.SortedKeys())
}

func TestMarshalCBOR(t *testing.T) {
	shared := NewCell(String("s"))
	data, err := MarshalCBOR(List{
		Variant{Case: "a", Value: Int(1)},
		Bytes{0x01, 0x02},
		shared,
		shared,
		Null{},
	})
	require.NoError(t, err)

	diag, err := Diagnose(data)
	require.NoError(t, err)
	assert.Equal(t, `[{"$case": "a", "value": 1}, h'0102', {"$id": 0, "value": "s"}, {"$ref": 0}, null]`, diag)
}

func TestMarshalCBOR_Deterministic(t *testing.T) {
	rec := R("zeta", Int(1), "alpha", Bool(true), "mid", List{String("x")})
	first, err := MarshalCBOR(rec)
	require.NoError(t, err)
	for range 10 {
		again, err := MarshalCBOR(rec)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFingerprint(t *testing.T) {
	build := func() Value {
		loop := NewCell(nil)
		loop.Value = R("value", Int(1), "next", loop)
		return loop
	}

	a := MustFingerprint("Node", build())
	b := MustFingerprint("Node", build())
	assert.Len(t, a, 64, "SHA-256 hex is 64 characters")
	assert.Equal(t, a, b, "cell identities do not contribute")
	assert.NotEqual(t, a, MustFingerprint("Other", build()), "type name contributes")
	assert.NotEqual(t, a, MustFingerprint("Node", R("value", Int(1))))

	_, err := Fingerprint("Node", List{nil})
	assert.Error(t, err)
}

func TestEncodedID(t *testing.T) {
	a := EncodedID("Node", []byte{1, 2})
	assert.Equal(t, a, EncodedID("Node", []byte{1, 2}))
	assert.NotEqual(t, a, EncodedID("Node", []byte{1, 2, 3}))
	assert.NotEqual(t, a, EncodedID("Nod", append([]byte("e"), 1, 2)), "separator prevents boundary ambiguity")
}
