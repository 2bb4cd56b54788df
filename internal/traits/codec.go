package traits

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Wire primitives. Integers are fixed width little-endian, strings carry a
// uvarint byte length, byte blocks and counts an int32.
const (
	sizeBool  = 1
	sizeInt32 = 4
)

// Serializer writes values to an io.Writer.
type Serializer struct {
	traversal
	w       io.Writer
	scratch [binary.MaxVarintLen64]byte
}

// NewSerializer returns a Serializer writing to w.
func NewSerializer(w io.Writer) *Serializer {
	return &Serializer{w: w}
}

func (s *Serializer) write(p []byte) {
	if s.err != nil {
		return
	}
	if _, err := s.w.Write(p); err != nil {
		s.Fail(fmt.Errorf("write: %w", err))
	}
}

// WriteRaw writes p with no length prefix.
func (s *Serializer) WriteRaw(p []byte) {
	s.write(p)
}

// WriteUint8 writes one byte.
func (s *Serializer) WriteUint8(b byte) {
	s.scratch[0] = b
	s.write(s.scratch[:1])
}

// WriteBool writes 1 for true and 0 for false.
func (s *Serializer) WriteBool(b bool) {
	if b {
		s.WriteUint8(1)
	} else {
		s.WriteUint8(0)
	}
}

// WriteUint writes the low width bytes of v, little-endian.
func (s *Serializer) WriteUint(v uint64, width int) {
	binary.LittleEndian.PutUint64(s.scratch[:8], v)
	s.write(s.scratch[:width])
}

// WriteInt32 writes v as four bytes.
func (s *Serializer) WriteInt32(v int32) {
	s.WriteUint(uint64(uint32(v)), sizeInt32)
}

// WriteCount writes a collection length as an int32. Lengths beyond
// math.MaxInt32 fail the traversal.
func (s *Serializer) WriteCount(n int) {
	if n > math.MaxInt32 {
		s.Fail(fmt.Errorf("length %d exceeds int32", n))
		return
	}
	s.WriteInt32(int32(n))
}

// WriteString writes the uvarint byte length of v followed by its bytes.
func (s *Serializer) WriteString(v string) {
	n := binary.PutUvarint(s.scratch[:], uint64(len(v)))
	s.write(s.scratch[:n])
	if s.err == nil && len(v) > 0 {
		if _, err := io.WriteString(s.w, v); err != nil {
			s.Fail(fmt.Errorf("write: %w", err))
		}
	}
}

// WriteBytes writes p as an int32 length followed by the raw bytes.
func (s *Serializer) WriteBytes(p []byte) {
	s.WriteCount(len(p))
	s.write(p)
}

// byteReader is what the deserializer reads from; uvarints need ReadByte.
type byteReader interface {
	io.Reader
	io.ByteReader
}

// countingReader tracks the offset for error reports.
type countingReader struct {
	r   byteReader
	off int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.off += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.off++
	}
	return b, err
}

// DefaultMaxCount bounds the element count of a decoded list, set or map.
// Elements may take no bytes at all (unit, singletons), so the input length
// alone does not bound the work a count asks for.
const DefaultMaxCount = 1 << 24

// Deserializer reads values from an io.Reader.
type Deserializer struct {
	traversal
	r        countingReader
	scratch  [8]byte
	maxCount int
}

// NewDeserializer returns a Deserializer reading from r. Readers without
// ReadByte are wrapped in a bufio.Reader, which may read ahead of the last
// decoded value.
func NewDeserializer(r io.Reader) *Deserializer {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Deserializer{r: countingReader{r: br}, maxCount: DefaultMaxCount}
}

// SetMaxCount changes the largest collection count ReadCount accepts.
func (d *Deserializer) SetMaxCount(n int) {
	d.maxCount = n
}

// Offset returns the number of bytes consumed so far.
func (d *Deserializer) Offset() int64 {
	return d.r.off
}

// Failf records a DecodeError at the current offset.
func (d *Deserializer) Failf(format string, args ...any) {
	d.Fail(&DecodeError{Offset: d.r.off, Message: fmt.Sprintf(format, args...)})
}

func (d *Deserializer) readFull(p []byte) bool {
	if d.err != nil {
		return false
	}
	if _, err := io.ReadFull(&d.r, p); err != nil {
		d.Failf("reading %d bytes: %v", len(p), err)
		return false
	}
	return true
}

// ReadRaw reads exactly n bytes.
func (d *Deserializer) ReadRaw(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 {
		d.Failf("negative length %d", n)
		return nil
	}
	// Grow with the input instead of trusting n for one allocation.
	p, err := io.ReadAll(io.LimitReader(&d.r, int64(n)))
	if err != nil {
		d.Failf("reading %d bytes: %v", n, err)
		return nil
	}
	if len(p) != n {
		d.Failf("unexpected end of input: want %d bytes, got %d", n, len(p))
		return nil
	}
	return p
}

// ReadUint8 reads one byte.
func (d *Deserializer) ReadUint8() byte {
	if !d.readFull(d.scratch[:1]) {
		return 0
	}
	return d.scratch[0]
}

// ReadBool reads a boolean byte. Values other than 0 and 1 are rejected.
func (d *Deserializer) ReadBool() bool {
	switch b := d.ReadUint8(); b {
	case 0:
		return false
	case 1:
		return true
	default:
		if d.err == nil {
			d.Failf("invalid boolean byte 0x%02x", b)
		}
		return false
	}
}

// ReadUint reads width little-endian bytes.
func (d *Deserializer) ReadUint(width int) uint64 {
	clear(d.scratch[:])
	if !d.readFull(d.scratch[:width]) {
		return 0
	}
	return binary.LittleEndian.Uint64(d.scratch[:])
}

// ReadInt32 reads four bytes.
func (d *Deserializer) ReadInt32() int32 {
	return int32(uint32(d.ReadUint(sizeInt32)))
}

// readLength reads an int32 length and rejects negative values.
func (d *Deserializer) readLength() int {
	n := d.ReadInt32()
	if n < 0 {
		d.Failf("negative count %d", n)
		return 0
	}
	return int(n)
}

// ReadCount reads an int32 collection length. Negative values and counts
// above the deserializer's limit are rejected.
func (d *Deserializer) ReadCount() int {
	n := d.readLength()
	if n > d.maxCount {
		d.Failf("count %d exceeds limit %d", n, d.maxCount)
		return 0
	}
	return n
}

// ReadString reads a uvarint-prefixed string.
func (d *Deserializer) ReadString() string {
	if d.err != nil {
		return ""
	}
	n, err := binary.ReadUvarint(&d.r)
	if err != nil {
		d.Failf("reading string length: %v", err)
		return ""
	}
	if n > math.MaxInt32 {
		d.Failf("string length %d exceeds int32", n)
		return ""
	}
	return string(d.ReadRaw(int(n)))
}

// ReadBytes reads an int32-prefixed byte block.
func (d *Deserializer) ReadBytes() []byte {
	n := d.readLength()
	return d.ReadRaw(n)
}

// ByteMeasurer counts the bytes a Serializer would write.
type ByteMeasurer struct {
	traversal
	n int64
}

// NewByteMeasurer returns a measurer at zero.
func NewByteMeasurer() *ByteMeasurer {
	return &ByteMeasurer{}
}

// Add counts n raw bytes.
func (m *ByteMeasurer) Add(n int) {
	m.n += int64(n)
}

// AddString counts a uvarint-prefixed string.
func (m *ByteMeasurer) AddString(v string) {
	m.n += int64(uvarintLen(uint64(len(v))) + len(v))
}

// AddBytes counts an int32-prefixed byte block of length n.
func (m *ByteMeasurer) AddBytes(n int) {
	m.n += int64(sizeInt32 + n)
}

// Count returns the total so far.
func (m *ByteMeasurer) Count() int64 {
	return m.n
}

func uvarintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}
