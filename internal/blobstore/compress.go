package blobstore

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a blob payload is stored. The numeric values
// are persisted in the compression column and must not change.
type Compression uint8

const (
	// CompressionNone stores the encoding as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 Compression = 1
	// CompressionZstd uses zstd at the default level.
	CompressionZstd Compression = 2
)

// String returns the name accepted by ParseCompression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q: must be one of none, lz4, zstd", name)
	}
}

// Set implements pflag.Value.
func (c *Compression) Set(name string) error {
	v, err := ParseCompression(name)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Type implements pflag.Value.
func (c *Compression) Type() string { return "compression" }

// UnmarshalText lets configuration files name the algorithm.
func (c *Compression) UnmarshalText(text []byte) error {
	return c.Set(string(text))
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// errIncompressible means the compressed form would not be smaller.
var errIncompressible = errors.New("data is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("blobstore: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("blobstore: zstd decoder initialization failed: " + err.Error())
	}
}

// compress returns the stored form of data and the tag actually used,
// falling back to CompressionNone when c does not shrink the payload.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	var (
		out []byte
		err error
	)
	switch c {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionLZ4:
		out, err = compressLZ4(data)
	case CompressionZstd:
		out, err = compressZstd(data)
	default:
		return nil, 0, fmt.Errorf("unsupported compression: %v", c)
	}
	if errors.Is(err, errIncompressible) {
		return data, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return out, c, nil
}

// decompress reverses compress. size is the length of the original
// encoding and is verified.
func decompress(stored []byte, c Compression, size int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(stored) != size {
			return nil, fmt.Errorf("uncompressed blob: size %d does not match expected %d", len(stored), size)
		}
		return stored, nil
	case CompressionLZ4:
		return decompressLZ4(stored, size)
	case CompressionZstd:
		return decompressZstd(stored, size)
	default:
		return nil, fmt.Errorf("unsupported compression: %v", c)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for incompressible input.
	if n == 0 || n >= len(data) {
		return nil, errIncompressible
	}
	return dst[:n], nil
}

func decompressLZ4(stored []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(stored, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, size)
	}
	return dst, nil
}

func compressZstd(data []byte) ([]byte, error) {
	out := zstdEncoder.EncodeAll(data, nil)
	if len(out) >= len(data) {
		return nil, errIncompressible
	}
	return out, nil
}

func decompressZstd(stored []byte, size int) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), size)
	}
	return out, nil
}
