package traits

import (
	"bytes"
	"fmt"
	"io"
)

// Traits is the operation bundle built for one value type T.
//
// Compare is a total order, and Compare(a, b) == 0 implies identical hash
// contributions. Serialize and Deserialize round-trip every value for which
// CanSerialize holds, and MeasureBytes reports exactly what Serialize would
// write. Traversal methods report failures through their context's Fail
// and may defer work with Enqueue; drivers run the queue and check Err.
type Traits[T any] interface {
	Compare(a, b T) int
	AddToHash(h *Hasher, a T)
	CanSerialize(a T) bool
	Serialize(s *Serializer, a T)
	Deserialize(d *Deserializer) T
	MeasureBytes(m *ByteMeasurer, a T)
	Clone(c *Cloner, a T) T
	CheckAnalogous(t *AnalogyTracker, a, b T)
	AppendDebugString(b *DebugStringBuilder, a T)
}

// Encode writes a to w.
func Encode[T any](w io.Writer, tr Traits[T], a T) error {
	s := NewSerializer(w)
	tr.Serialize(s, a)
	s.RunQueue()
	return s.Err()
}

// Marshal returns the encoding of a.
func Marshal[T any](tr Traits[T], a T) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, tr, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads one value from r.
func Decode[T any](r io.Reader, tr Traits[T]) (T, error) {
	d := NewDeserializer(r)
	return decode(d, tr)
}

func decode[T any](d *Deserializer, tr Traits[T]) (T, error) {
	a := tr.Deserialize(d)
	d.RunQueue()
	if err := d.Err(); err != nil {
		var zero T
		return zero, err
	}
	return a, nil
}

// Unmarshal decodes data, which must hold exactly one value.
func Unmarshal[T any](tr Traits[T], data []byte) (T, error) {
	r := bytes.NewReader(data)
	d := NewDeserializer(r)
	a, err := decode(d, tr)
	if err != nil {
		return a, err
	}
	if r.Len() > 0 {
		var zero T
		return zero, &DecodeError{Offset: d.Offset(), Message: fmt.Sprintf("%d trailing byte(s)", r.Len())}
	}
	return a, nil
}

// Measure returns the number of bytes Marshal would produce for a.
func Measure[T any](tr Traits[T], a T) (int64, error) {
	m := NewByteMeasurer()
	tr.MeasureBytes(m, a)
	m.RunQueue()
	if err := m.Err(); err != nil {
		return 0, err
	}
	return m.Count(), nil
}

// DebugString renders a.
func DebugString[T any](tr Traits[T], a T) string {
	b := NewDebugStringBuilder()
	tr.AppendDebugString(b, a)
	b.RunQueue()
	return b.String()
}

// Clone returns a structural copy of a.
func Clone[T any](tr Traits[T], a T) (T, error) {
	c := NewCloner()
	out := tr.Clone(c, a)
	c.RunQueue()
	if err := c.Err(); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Analogous reports whether a and b are isomorphic: equal up to a
// one-to-one renaming of shared container identities.
func Analogous[T any](tr Traits[T], a, b T) bool {
	t := NewAnalogyTracker()
	RunCheck(t, tr, a, b)
	t.RunQueue()
	return t.IsAnalogous()
}

// Equal reports whether tr orders a and b the same.
func Equal[T any](tr Traits[T], a, b T) bool {
	return tr.Compare(a, b) == 0
}

// Comparator adapts tr to the func(a, b T) int shape used by slices.SortFunc.
func Comparator[T any](tr Traits[T]) func(a, b T) int {
	return tr.Compare
}
