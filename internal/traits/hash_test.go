package traits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHashAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    HashAlgorithm
		wantErr bool
	}{
		{"basic", HashBasic, false},
		{"SHA256", HashSHA256, false},
		{"Blake3", HashBlake3, false},
		{"md5", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHashAlgorithm(tt.in)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unknown hash algorithm")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashDrivers_Agree(t *testing.T) {
	tr := NewMap(String(), NewList(Int32()))
	v := map[string][]int32{"b": {2}, "a": {1, 1}}

	sha := SHA256(tr, v)
	viaAlgo, err := HashWith(HashSHA256.New(), tr, v)
	require.NoError(t, err)
	assert.Equal(t, sha[:], viaAlgo)

	b3 := Blake3(tr, v)
	viaAlgo, err = HashWith(HashBlake3.New(), tr, v)
	require.NoError(t, err)
	assert.Equal(t, b3[:], viaAlgo)

	basic, err := HashWith(HashBasic.New(), tr, v)
	require.NoError(t, err)
	assert.Len(t, basic, 8)
}

func TestHash_Stable(t *testing.T) {
	tr := NewPair(String(), NewOption(Float64()))
	a := MakePair("x", Some(1.5))

	assert.Equal(t, BasicHash(tr, a), BasicHash(tr, MakePair("x", Some(1.5))))
	assert.Equal(t, Blake3(tr, a), Blake3(tr, MakePair("x", Some(1.5))))
	assert.NotEqual(t, Blake3(tr, a), Blake3(tr, MakePair("x", None[float64]())))
}
