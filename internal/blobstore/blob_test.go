package blobstore

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/traitsmith/internal/testutil"
)

func TestDigest(t *testing.T) {
	data := []byte{1, 2, 3}
	d := Digest("Point", data)
	assert.Len(t, d, 64)
	assert.Equal(t, d, Digest("Point", data), "deterministic")
	assert.NotEqual(t, d, Digest("Node", data), "type participates")
	assert.NotEqual(t, d, Digest("Point", []byte{1, 2}), "data participates")
	assert.NotEqual(t, Digest("ab", []byte("c")), Digest("a", []byte("bc")), "fields are separated")
}

func TestPutGet_RoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			s := createTestStore(t, WithCompression(c))
			ctx := context.Background()
			data := bytes.Repeat([]byte("traitsmith "), 64)

			digest, err := s.Put(ctx, "list<string>", data)
			require.NoError(t, err)
			assert.Equal(t, Digest("list<string>", data), digest)

			b, err := s.Get(ctx, digest)
			require.NoError(t, err)
			assert.Equal(t, data, b.Data)
			assert.Equal(t, "list<string>", b.TypeExpr)
			assert.Equal(t, c, b.Compression)
			assert.Equal(t, len(data), b.Size)
			if c != CompressionNone {
				assert.Less(t, b.StoredSize, b.Size)
			}
		})
	}
}

func TestPut_IncompressibleFallsBack(t *testing.T) {
	s := createTestStore(t, WithCompression(CompressionZstd))
	ctx := context.Background()

	data := make([]byte, 256)
	_, err := rand.Read(data)
	require.NoError(t, err)

	digest, err := s.Put(ctx, "bytes", data)
	require.NoError(t, err)
	b, err := s.Get(ctx, digest)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, b.Compression)
	assert.Equal(t, data, b.Data)
}

func TestPut_EmptyEncoding(t *testing.T) {
	s := createTestStore(t, WithCompression(CompressionLZ4))
	ctx := context.Background()

	digest, err := s.Put(ctx, "unit", nil)
	require.NoError(t, err)
	b, err := s.Get(ctx, digest)
	require.NoError(t, err)
	assert.Empty(t, b.Data)
	assert.Equal(t, CompressionNone, b.Compression)
}

func TestPut_Idempotent(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	s := createTestStore(t, WithClock(clock))
	ctx := context.Background()

	first, err := s.Put(ctx, "int", []byte{7, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	second, err := s.Put(ctx, "int", []byte{7, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	infos, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, testutil.DefaultEpoch.Add(time.Second), infos[0].CreatedAt, "first write wins")
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Get(context.Background(), Digest("int", nil))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsCorrupt(err))
}

func TestGet_DetectsCorruption(t *testing.T) {
	s := createTestStore(t, WithCompression(CompressionNone))
	ctx := context.Background()

	digest, err := s.Put(ctx, "bytes", []byte("original"))
	require.NoError(t, err)
	_, err = s.db.Exec("UPDATE blobs SET data = ? WHERE digest = ?", []byte("tampered"), digest)
	require.NoError(t, err)

	_, err = s.Get(ctx, digest)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))
	assert.Contains(t, err.Error(), "content hashes to")
}

func TestHas(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	digest, err := s.Put(ctx, "string", []byte("x"))
	require.NoError(t, err)

	ok, err := s.Has(ctx, digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Has(ctx, Digest("string", []byte("y")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList_FiltersAndOrders(t *testing.T) {
	s := createTestStore(t, WithClock(testutil.NewDeterministicClock()))
	ctx := context.Background()

	a, err := s.Put(ctx, "Point", []byte("a"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "Node", []byte("b"))
	require.NoError(t, err)
	c, err := s.Put(ctx, "Point", []byte("c"))
	require.NoError(t, err)

	points, err := s.List(ctx, "Point")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, a, points[0].Digest)
	assert.Equal(t, c, points[1].Digest)
	assert.True(t, points[0].CreatedAt.Before(points[1].CreatedAt))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.List(ctx, "Drawing")
	require.NoError(t, err)
	assert.Empty(t, none)
}
