package traits

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

type intTraits[N integer] struct {
	width  int
	signed bool
	token  uint32
}

// Integer returns traits for any integer type, including named ones. The
// wire width is the type's size; int and uint always use eight bytes.
func Integer[N integer]() Traits[N] {
	t := reflect.TypeFor[N]()
	it := intTraits[N]{width: int(t.Size())}
	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		it.signed = true
	}
	if t.Kind() == reflect.Int || t.Kind() == reflect.Uint {
		it.width = 8
	}
	switch {
	case it.width == 1 && it.signed:
		it.token = TokenInt8
	case it.width == 1:
		it.token = TokenByte
	case it.width == 2 && it.signed:
		it.token = TokenInt16
	case it.width == 2:
		it.token = TokenUint16
	case it.width == 4 && it.signed:
		it.token = TokenInt32
	case it.width == 4:
		it.token = TokenUint32
	case it.signed:
		it.token = TokenInt64
	default:
		it.token = TokenUint64
	}
	return it
}

func (t intTraits[N]) Compare(a, b N) int                { return cmp.Compare(a, b) }
func (t intTraits[N]) AddToHash(h *Hasher, a N)          { h.AddUint(t.token, uint64(a), t.width) }
func (t intTraits[N]) CanSerialize(N) bool               { return true }
func (t intTraits[N]) Serialize(s *Serializer, a N)      { s.WriteUint(uint64(a), t.width) }
func (t intTraits[N]) MeasureBytes(m *ByteMeasurer, _ N) { m.Add(t.width) }
func (t intTraits[N]) Clone(_ *Cloner, a N) N            { return a }

func (t intTraits[N]) Deserialize(d *Deserializer) N {
	u := d.ReadUint(t.width)
	if t.signed {
		shift := 64 - 8*t.width
		return N(int64(u<<shift) >> shift)
	}
	return N(u)
}

func (t intTraits[N]) CheckAnalogous(tk *AnalogyTracker, a, b N) {
	checkCompare[N](tk, t, a, b)
}

func (t intTraits[N]) AppendDebugString(b *DebugStringBuilder, a N) {
	if t.signed {
		b.WriteString(strconv.FormatInt(int64(a), 10))
	} else {
		b.WriteString(strconv.FormatUint(uint64(a), 10))
	}
}

// Int8 returns traits for int8.
func Int8() Traits[int8] { return Integer[int8]() }

// Int16 returns traits for int16.
func Int16() Traits[int16] { return Integer[int16]() }

// Int32 returns traits for int32.
func Int32() Traits[int32] { return Integer[int32]() }

// Int64 returns traits for int64.
func Int64() Traits[int64] { return Integer[int64]() }

// Int returns traits for int, encoded as eight bytes.
func Int() Traits[int] { return Integer[int]() }

// Uint8 returns traits for uint8.
func Uint8() Traits[uint8] { return Integer[uint8]() }

// Uint16 returns traits for uint16.
func Uint16() Traits[uint16] { return Integer[uint16]() }

// Uint32 returns traits for uint32.
func Uint32() Traits[uint32] { return Integer[uint32]() }

// Uint64 returns traits for uint64.
func Uint64() Traits[uint64] { return Integer[uint64]() }

type floatTraits[F ~float32 | ~float64] struct {
	width int
	token uint32
}

// Float returns traits for a float type. Values are written as raw IEEE-754
// bits. Compare follows cmp.Compare: NaNs sort first and equal each other,
// and -0 equals +0; hashing canonicalizes both cases to match.
func Float[F ~float32 | ~float64]() Traits[F] {
	if reflect.TypeFor[F]().Size() == 4 {
		return floatTraits[F]{width: 4, token: TokenFloat32}
	}
	return floatTraits[F]{width: 8, token: TokenFloat64}
}

// Float32 returns traits for float32.
func Float32() Traits[float32] { return Float[float32]() }

// Float64 returns traits for float64.
func Float64() Traits[float64] { return Float[float64]() }

func (t floatTraits[F]) bits(a F) uint64 {
	if t.width == 4 {
		return uint64(math.Float32bits(float32(a)))
	}
	return math.Float64bits(float64(a))
}

func (t floatTraits[F]) Compare(a, b F) int { return cmp.Compare(a, b) }

func (t floatTraits[F]) AddToHash(h *Hasher, a F) {
	switch {
	case a != a:
		a = F(math.NaN())
	case a == 0:
		a = 0
	}
	h.AddUint(t.token, t.bits(a), t.width)
}

func (t floatTraits[F]) CanSerialize(F) bool               { return true }
func (t floatTraits[F]) Serialize(s *Serializer, a F)      { s.WriteUint(t.bits(a), t.width) }
func (t floatTraits[F]) MeasureBytes(m *ByteMeasurer, _ F) { m.Add(t.width) }
func (t floatTraits[F]) Clone(_ *Cloner, a F) F            { return a }

func (t floatTraits[F]) Deserialize(d *Deserializer) F {
	u := d.ReadUint(t.width)
	if t.width == 4 {
		return F(math.Float32frombits(uint32(u)))
	}
	return F(math.Float64frombits(u))
}

func (t floatTraits[F]) CheckAnalogous(tk *AnalogyTracker, a, b F) {
	checkCompare[F](tk, t, a, b)
}

func (t floatTraits[F]) AppendDebugString(b *DebugStringBuilder, a F) {
	b.WriteString(strconv.FormatFloat(float64(a), 'g', -1, t.width*8))
}

type stringTraits struct{}

// String returns traits for string.
func String() Traits[string] { return stringTraits{} }

func (stringTraits) Compare(a, b string) int                { return strings.Compare(a, b) }
func (stringTraits) AddToHash(h *Hasher, a string)          { h.AddString(TokenString, a) }
func (stringTraits) CanSerialize(a string) bool             { return len(a) <= math.MaxInt32 }
func (stringTraits) Serialize(s *Serializer, a string)      { s.WriteString(a) }
func (stringTraits) Deserialize(d *Deserializer) string     { return d.ReadString() }
func (stringTraits) MeasureBytes(m *ByteMeasurer, a string) { m.AddString(a) }
func (stringTraits) Clone(_ *Cloner, a string) string       { return a }
func (t stringTraits) CheckAnalogous(tk *AnalogyTracker, a, b string) {
	checkCompare[string](tk, t, a, b)
}
func (stringTraits) AppendDebugString(b *DebugStringBuilder, a string) {
	b.WriteString(strconv.Quote(a))
}

type boolTraits struct{}

// Bool returns traits for bool.
func Bool() Traits[bool] { return boolTraits{} }

func (boolTraits) Compare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func (boolTraits) AddToHash(h *Hasher, a bool) {
	var v uint64
	if a {
		v = 1
	}
	h.AddUint(TokenBoolean, v, sizeBool)
}

func (boolTraits) CanSerialize(bool) bool               { return true }
func (boolTraits) Serialize(s *Serializer, a bool)      { s.WriteBool(a) }
func (boolTraits) Deserialize(d *Deserializer) bool     { return d.ReadBool() }
func (boolTraits) MeasureBytes(m *ByteMeasurer, _ bool) { m.Add(sizeBool) }
func (boolTraits) Clone(_ *Cloner, a bool) bool         { return a }
func (t boolTraits) CheckAnalogous(tk *AnalogyTracker, a, b bool) {
	checkCompare[bool](tk, t, a, b)
}
func (boolTraits) AppendDebugString(b *DebugStringBuilder, a bool) {
	b.WriteString(strconv.FormatBool(a))
}

type bytesTraits struct{}

// Bytes returns traits for variable-length byte slices. nil and empty
// slices compare equal and both decode as empty.
func Bytes() Traits[[]byte] { return bytesTraits{} }

func (bytesTraits) Compare(a, b []byte) int                { return bytes.Compare(a, b) }
func (bytesTraits) AddToHash(h *Hasher, a []byte)          { h.AddBytes(TokenByteArray, a) }
func (bytesTraits) CanSerialize(a []byte) bool             { return len(a) <= math.MaxInt32 }
func (bytesTraits) Serialize(s *Serializer, a []byte)      { s.WriteBytes(a) }
func (bytesTraits) Deserialize(d *Deserializer) []byte     { return d.ReadBytes() }
func (bytesTraits) MeasureBytes(m *ByteMeasurer, a []byte) { m.AddBytes(len(a)) }
func (bytesTraits) Clone(_ *Cloner, a []byte) []byte       { return bytes.Clone(a) }
func (t bytesTraits) CheckAnalogous(tk *AnalogyTracker, a, b []byte) {
	checkCompare[[]byte](tk, t, a, b)
}
func (bytesTraits) AppendDebugString(b *DebugStringBuilder, a []byte) {
	writeHexBytes(b, a)
}

// writeHexBytes renders "(bytes 0A-FF)".
func writeHexBytes(b *DebugStringBuilder, p []byte) {
	b.WriteString("(bytes")
	for i, c := range p {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString("-")
		}
		b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
	}
	b.WriteString(")")
}

type fixedBytesTraits struct {
	n int
}

// FixedBytes returns traits for byte slices of exactly n bytes, written
// without a length prefix. Other lengths fail with a GuardViolationError.
func FixedBytes(n int) Traits[[]byte] { return fixedBytesTraits{n: n} }

func (t fixedBytesTraits) guard(a []byte) error {
	if len(a) == t.n {
		return nil
	}
	return &GuardViolationError{
		Traits: "fixed-bytes(" + strconv.Itoa(t.n) + ")",
		Reason: "length " + strconv.Itoa(len(a)),
	}
}

func (fixedBytesTraits) Compare(a, b []byte) int              { return bytes.Compare(a, b) }
func (fixedBytesTraits) AddToHash(h *Hasher, a []byte)        { h.AddBytes(TokenFixedBytes, a) }
func (t fixedBytesTraits) CanSerialize(a []byte) bool         { return len(a) == t.n }
func (t fixedBytesTraits) Deserialize(d *Deserializer) []byte { return d.ReadRaw(t.n) }
func (fixedBytesTraits) Clone(_ *Cloner, a []byte) []byte     { return bytes.Clone(a) }

func (t fixedBytesTraits) Serialize(s *Serializer, a []byte) {
	if err := t.guard(a); err != nil {
		s.Fail(err)
		return
	}
	s.WriteRaw(a)
}

func (t fixedBytesTraits) MeasureBytes(m *ByteMeasurer, a []byte) {
	if err := t.guard(a); err != nil {
		m.Fail(err)
		return
	}
	m.Add(t.n)
}

func (t fixedBytesTraits) CheckAnalogous(tk *AnalogyTracker, a, b []byte) {
	checkCompare[[]byte](tk, t, a, b)
}

func (fixedBytesTraits) AppendDebugString(b *DebugStringBuilder, a []byte) {
	writeHexBytes(b, a)
}

type uuidTraits struct{}

// UUID returns traits for uuid.UUID, written as 16 raw bytes.
func UUID() Traits[uuid.UUID] { return uuidTraits{} }

func (uuidTraits) Compare(a, b uuid.UUID) int                { return bytes.Compare(a[:], b[:]) }
func (uuidTraits) AddToHash(h *Hasher, a uuid.UUID)          { h.AddBytes(TokenUUID, a[:]) }
func (uuidTraits) CanSerialize(uuid.UUID) bool               { return true }
func (uuidTraits) Serialize(s *Serializer, a uuid.UUID)      { s.WriteRaw(a[:]) }
func (uuidTraits) MeasureBytes(m *ByteMeasurer, _ uuid.UUID) { m.Add(len(uuid.UUID{})) }
func (uuidTraits) Clone(_ *Cloner, a uuid.UUID) uuid.UUID    { return a }

func (uuidTraits) Deserialize(d *Deserializer) uuid.UUID {
	var u uuid.UUID
	copy(u[:], d.ReadRaw(len(u)))
	return u
}

func (t uuidTraits) CheckAnalogous(tk *AnalogyTracker, a, b uuid.UUID) {
	checkCompare[uuid.UUID](tk, t, a, b)
}

func (uuidTraits) AppendDebugString(b *DebugStringBuilder, a uuid.UUID) {
	b.WriteString("(uuid ")
	b.WriteString(a.String())
	b.WriteString(")")
}

type timeTraits struct{}

// Time returns traits for time.Time, written as int64 Unix nanoseconds.
// Decoded times are in UTC. Instants outside the int64 nanosecond range
// (roughly years 1678 to 2262) cannot be serialized.
func Time() Traits[time.Time] { return timeTraits{} }

func (timeTraits) Compare(a, b time.Time) int { return a.Compare(b) }

func (timeTraits) AddToHash(h *Hasher, a time.Time) {
	h.AddUint(TokenTime, uint64(a.UnixNano()), 8)
}

func (timeTraits) CanSerialize(a time.Time) bool {
	return time.Unix(0, a.UnixNano()).Equal(a)
}

func (t timeTraits) Serialize(s *Serializer, a time.Time) {
	if !t.CanSerialize(a) {
		s.Fail(&GuardViolationError{Traits: "time", Reason: "instant outside the int64 nanosecond range"})
		return
	}
	s.WriteUint(uint64(a.UnixNano()), 8)
}

func (timeTraits) Deserialize(d *Deserializer) time.Time {
	return time.Unix(0, int64(d.ReadUint(8))).UTC()
}

func (timeTraits) MeasureBytes(m *ByteMeasurer, _ time.Time) { m.Add(8) }
func (timeTraits) Clone(_ *Cloner, a time.Time) time.Time    { return a }

func (t timeTraits) CheckAnalogous(tk *AnalogyTracker, a, b time.Time) {
	checkCompare[time.Time](tk, t, a, b)
}

func (timeTraits) AppendDebugString(b *DebugStringBuilder, a time.Time) {
	b.WriteString("(time ")
	b.WriteString(a.UTC().Format(time.RFC3339Nano))
	b.WriteString(")")
}
