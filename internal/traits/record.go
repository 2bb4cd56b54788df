package traits

import (
	"fmt"
	"reflect"
)

// Field is one named member of a record type R. Field values are the
// FieldTraits artifacts that record rules assemble.
type Field[R any] interface {
	// Name is the field name.
	Name() string
	// TypeName names the field's declared type. Two declarations of the
	// same field must agree on it.
	TypeName() string

	ops() fieldOps[R]
}

// fieldOps is the per-field slice of the traits protocol.
type fieldOps[R any] interface {
	compare(a, b R) int
	hash(h *Hasher, a R)
	canSerialize(a R) bool
	serialize(s *Serializer, a R)
	deserialize(d *Deserializer, into *R)
	measure(m *ByteMeasurer, a R)
	clone(c *Cloner, src R, dst *R)
	analogous(tk *AnalogyTracker, a, b R)
	debug(b *DebugStringBuilder, a R)
}

type field[R, F any] struct {
	name     string
	typeName string
	get      func(R) F
	set      func(*R, F)
	tr       Traits[F]
}

// NewField returns a record field backed by an accessor pair.
func NewField[R, F any](name string, tr Traits[F], get func(R) F, set func(*R, F)) Field[R] {
	return &field[R, F]{name: name, typeName: reflect.TypeFor[F]().String(), get: get, set: set, tr: tr}
}

// NewNamedField is NewField with an explicit type name, for records whose
// field types are not Go types of their own.
func NewNamedField[R, F any](name, typeName string, tr Traits[F], get func(R) F, set func(*R, F)) Field[R] {
	return &field[R, F]{name: name, typeName: typeName, get: get, set: set, tr: tr}
}

func (f *field[R, F]) Name() string          { return f.name }
func (f *field[R, F]) TypeName() string      { return f.typeName }
func (f *field[R, F]) ops() fieldOps[R]      { return f }
func (f *field[R, F]) compare(a, b R) int    { return f.tr.Compare(f.get(a), f.get(b)) }
func (f *field[R, F]) hash(h *Hasher, a R)   { f.tr.AddToHash(h, f.get(a)) }
func (f *field[R, F]) canSerialize(a R) bool { return f.tr.CanSerialize(f.get(a)) }
func (f *field[R, F]) serialize(s *Serializer, a R) {
	f.tr.Serialize(s, f.get(a))
}
func (f *field[R, F]) deserialize(d *Deserializer, into *R) {
	f.set(into, f.tr.Deserialize(d))
}
func (f *field[R, F]) measure(m *ByteMeasurer, a R) { f.tr.MeasureBytes(m, f.get(a)) }
func (f *field[R, F]) clone(c *Cloner, src R, dst *R) {
	f.set(dst, f.tr.Clone(c, f.get(src)))
}
func (f *field[R, F]) analogous(tk *AnalogyTracker, a, b R) {
	RunCheck(tk, f.tr, f.get(a), f.get(b))
}
func (f *field[R, F]) debug(b *DebugStringBuilder, a R) {
	f.tr.AppendDebugString(b, f.get(a))
}

// RecursiveField is a placeholder for a field whose traits are still under
// construction. Its name and type are known up front; every other call is
// forwarded once it is resolved.
type RecursiveField[R any] struct {
	name     string
	typeName string
	inner    Field[R]
}

// NewRecursiveField returns an unset field placeholder.
func NewRecursiveField[R any](name, typeName string) *RecursiveField[R] {
	return &RecursiveField[R]{name: name, typeName: typeName}
}

func (f *RecursiveField[R]) Name() string     { return f.name }
func (f *RecursiveField[R]) TypeName() string { return f.typeName }

// Resolved reports whether Resolve has succeeded.
func (f *RecursiveField[R]) Resolved() bool { return f.inner != nil }

func (f *RecursiveField[R]) ops() fieldOps[R] {
	if f.inner == nil {
		panic(ErrUnresolved)
	}
	return f.inner.ops()
}

// Resolve sets the placeholder from an untyped artifact.
func (f *RecursiveField[R]) Resolve(real any) error {
	if f.inner != nil {
		return ErrAlreadyResolved
	}
	inner, ok := real.(Field[R])
	if !ok {
		return fmt.Errorf("traits: field placeholder %s resolved with %T", f.name, real)
	}
	if inner.Name() != f.name || inner.TypeName() != f.typeName {
		return fmt.Errorf("traits: field placeholder %s %s resolved with %s %s",
			f.name, f.typeName, inner.Name(), inner.TypeName())
	}
	f.inner = inner
	return nil
}

// Record is the traits implementation for a product type with named,
// ordered fields.
type Record[R any] struct {
	name   string
	fields []Field[R]
	create func() R
}

// NewRecord returns traits for R over fields, in declaration order. A field
// name declared twice must carry the same type both times; the repeat is
// dropped. Disagreeing declarations fail with a TypeMismatchError.
func NewRecord[R any](name string, fields ...Field[R]) (*Record[R], error) {
	seen := make(map[string]Field[R], len(fields))
	kept := make([]Field[R], 0, len(fields))
	for _, f := range fields {
		if prev, ok := seen[f.Name()]; ok {
			if prev.TypeName() != f.TypeName() {
				return nil, &TypeMismatchError{Record: name, Field: f.Name(), First: prev.TypeName(), Second: f.TypeName()}
			}
			continue
		}
		seen[f.Name()] = f
		kept = append(kept, f)
	}
	return &Record[R]{name: name, fields: kept}, nil
}

// WithConstructor sets the function producing the value that decoded and
// cloned fields are written into. The default is R's zero value.
func (t *Record[R]) WithConstructor(create func() R) *Record[R] {
	t.create = create
	return t
}

// Name returns the record's name.
func (t *Record[R]) Name() string { return t.name }

// Fields returns the fields in order.
func (t *Record[R]) Fields() []Field[R] { return t.fields }

func (t *Record[R]) zero() R {
	if t.create != nil {
		return t.create()
	}
	var zero R
	return zero
}

func (t *Record[R]) Compare(a, b R) int {
	for _, f := range t.fields {
		if c := f.ops().compare(a, b); c != 0 {
			return c
		}
	}
	return 0
}

func (t *Record[R]) AddToHash(h *Hasher, a R) {
	h.AddString(TokenRecord, t.name)
	for _, f := range t.fields {
		f.ops().hash(h, a)
	}
}

func (t *Record[R]) CanSerialize(a R) bool {
	for _, f := range t.fields {
		if !f.ops().canSerialize(a) {
			return false
		}
	}
	return true
}

func (t *Record[R]) Serialize(s *Serializer, a R) {
	for _, f := range t.fields {
		if s.Err() != nil {
			return
		}
		f.ops().serialize(s, a)
	}
}

func (t *Record[R]) Deserialize(d *Deserializer) R {
	out := t.zero()
	for _, f := range t.fields {
		if d.Err() != nil {
			break
		}
		f.ops().deserialize(d, &out)
	}
	return out
}

func (t *Record[R]) MeasureBytes(m *ByteMeasurer, a R) {
	for _, f := range t.fields {
		f.ops().measure(m, a)
	}
}

func (t *Record[R]) Clone(c *Cloner, a R) R {
	out := t.zero()
	for _, f := range t.fields {
		f.ops().clone(c, a, &out)
	}
	return out
}

func (t *Record[R]) CheckAnalogous(tk *AnalogyTracker, a, b R) {
	for _, f := range t.fields {
		if !tk.IsAnalogous() {
			return
		}
		f.ops().analogous(tk, a, b)
	}
}

func (t *Record[R]) AppendDebugString(b *DebugStringBuilder, a R) {
	b.WriteString("(rec " + t.name)
	for _, f := range t.fields {
		b.WriteString(", " + f.Name() + " = ")
		f.ops().debug(b, a)
	}
	b.WriteString(")")
}
