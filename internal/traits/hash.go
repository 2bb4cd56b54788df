package traits

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Hash tokens tag every contribution with its shape so that nested
// contributions of different types cannot collide.
const (
	TokenString     uint32 = 0x1BA6E283
	TokenChar       uint32 = 0x1EE444BD
	TokenByte       uint32 = 0x9120ED73
	TokenInt8       uint32 = 0x6D3C5B19
	TokenInt16      uint32 = 0x2B5E14A7
	TokenInt32      uint32 = 0x1D9EBF18
	TokenInt64      uint32 = 0x4789610C
	TokenUint16     uint32 = 0x5C0A9E33
	TokenUint32     uint32 = 0x0F2BD6E1
	TokenUint64     uint32 = 0x73E4A2C8
	TokenFloat32    uint32 = 0x3A9D11F0
	TokenFloat64    uint32 = 0x8E1B47D2
	TokenBoolean    uint32 = 0xB2980985
	TokenByteArray  uint32 = 0x4FEE3128
	TokenFixedBytes uint32 = 0x05D1C7A4
	TokenUUID       uint32 = 0xE2B3F46A
	TokenTime       uint32 = 0x61C8A0DD
	TokenTuple2     uint32 = 0x92882C6C
	TokenTuple3     uint32 = 0xCCA88465
	TokenOption     uint32 = 0x9B1D6E27
	TokenUnion      uint32 = 0x79EFC1E9
	TokenList       uint32 = 0x28BD378B
	TokenSet        uint32 = 0xFB769F51
	TokenDictionary uint32 = 0xA1AF0337
	TokenRecord     uint32 = 0x1F4E9C85
	TokenSharedRef  uint32 = 0xC93A02B6
	TokenUnit       uint32 = 0x0B7D5A19
)

// Hasher feeds tagged contributions into a hash.Hash.
type Hasher struct {
	traversal
	h       hash.Hash
	scratch [binary.MaxVarintLen64]byte
}

// NewHasher returns a Hasher writing into h.
func NewHasher(h hash.Hash) *Hasher {
	return &Hasher{h: h}
}

func (h *Hasher) write(p []byte) {
	// hash.Hash.Write never returns an error.
	_, _ = h.h.Write(p)
}

// AddToken adds a bare token, for shapes with no payload.
func (h *Hasher) AddToken(token uint32) {
	binary.LittleEndian.PutUint32(h.scratch[:4], token)
	h.write(h.scratch[:4])
}

// AddUint adds a token followed by the low width bytes of v.
func (h *Hasher) AddUint(token uint32, v uint64, width int) {
	h.AddToken(token)
	binary.LittleEndian.PutUint64(h.scratch[:8], v)
	h.write(h.scratch[:width])
}

// AddCount adds a token followed by a collection length. Composite shapes
// call it before contributing their elements.
func (h *Hasher) AddCount(token uint32, n int) {
	h.AddUint(token, uint64(n), 8)
}

// AddBytes adds a token, the length of p and p itself.
func (h *Hasher) AddBytes(token uint32, p []byte) {
	h.AddCount(token, len(p))
	h.write(p)
}

// AddString is AddBytes for strings.
func (h *Hasher) AddString(token uint32, s string) {
	h.AddCount(token, len(s))
	_, _ = h.h.Write([]byte(s))
}

// Sum returns the digest of everything added so far.
func (h *Hasher) Sum() []byte {
	return h.h.Sum(nil)
}

// HashAlgorithm selects the digest behind a structural hash.
type HashAlgorithm string

const (
	// HashBasic is a fast non-cryptographic 64-bit hash (xxHash64).
	HashBasic HashAlgorithm = "basic"
	// HashSHA256 is SHA-256.
	HashSHA256 HashAlgorithm = "sha256"
	// HashBlake3 is 256-bit BLAKE3.
	HashBlake3 HashAlgorithm = "blake3"
)

// HashAlgorithms lists the supported algorithms.
var HashAlgorithms = []HashAlgorithm{HashBasic, HashSHA256, HashBlake3}

// ParseHashAlgorithm parses a case-insensitive algorithm name.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	for _, a := range HashAlgorithms {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown hash algorithm %q: must be one of %v", s, HashAlgorithms)
}

// New returns a fresh hash.Hash for the algorithm.
func (a HashAlgorithm) New() hash.Hash {
	switch a {
	case HashSHA256:
		return sha256.New()
	case HashBlake3:
		return blake3.New()
	default:
		return xxhash.New()
	}
}

// HashWith feeds a's contribution into h and returns the digest.
func HashWith[T any](h hash.Hash, tr Traits[T], a T) ([]byte, error) {
	hs := NewHasher(h)
	tr.AddToHash(hs, a)
	hs.RunQueue()
	if err := hs.Err(); err != nil {
		return nil, err
	}
	return hs.Sum(), nil
}

// BasicHash returns the 64-bit xxHash of a's contribution.
func BasicHash[T any](tr Traits[T], a T) uint64 {
	d := xxhash.New()
	hs := NewHasher(d)
	tr.AddToHash(hs, a)
	hs.RunQueue()
	return d.Sum64()
}

// SHA256 returns the SHA-256 digest of a's contribution.
func SHA256[T any](tr Traits[T], a T) [sha256.Size]byte {
	var out [sha256.Size]byte
	sum, _ := HashWith(sha256.New(), tr, a)
	copy(out[:], sum)
	return out
}

// Blake3 returns the 256-bit BLAKE3 digest of a's contribution.
func Blake3[T any](tr Traits[T], a T) [32]byte {
	var out [32]byte
	sum, _ := HashWith(blake3.New(), tr, a)
	copy(out[:], sum)
	return out
}
