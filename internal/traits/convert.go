package traits

type convertTraits[T, U any] struct {
	inner Traits[U]
	to    func(T) U
	from  func(U) T
}

// NewConvert returns traits for T that delegate every operation to inner
// through a pair of conversions. from(to(a)) must reproduce a.
func NewConvert[T, U any](inner Traits[U], to func(T) U, from func(U) T) Traits[T] {
	return convertTraits[T, U]{inner: inner, to: to, from: from}
}

func (t convertTraits[T, U]) Compare(a, b T) int           { return t.inner.Compare(t.to(a), t.to(b)) }
func (t convertTraits[T, U]) AddToHash(h *Hasher, a T)     { t.inner.AddToHash(h, t.to(a)) }
func (t convertTraits[T, U]) CanSerialize(a T) bool        { return t.inner.CanSerialize(t.to(a)) }
func (t convertTraits[T, U]) Serialize(s *Serializer, a T) { t.inner.Serialize(s, t.to(a)) }
func (t convertTraits[T, U]) Deserialize(d *Deserializer) T {
	return t.from(t.inner.Deserialize(d))
}
func (t convertTraits[T, U]) MeasureBytes(m *ByteMeasurer, a T) { t.inner.MeasureBytes(m, t.to(a)) }
func (t convertTraits[T, U]) Clone(c *Cloner, a T) T {
	return t.from(t.inner.Clone(c, t.to(a)))
}
func (t convertTraits[T, U]) CheckAnalogous(tk *AnalogyTracker, a, b T) {
	RunCheck(tk, t.inner, t.to(a), t.to(b))
}
func (t convertTraits[T, U]) AppendDebugString(b *DebugStringBuilder, a T) {
	t.inner.AppendDebugString(b, t.to(a))
}

type guardedTraits[T any] struct {
	inner Traits[T]
	name  string
	check func(T) error
}

// NewGuarded wraps inner with a predicate. check returns a reason for
// rejecting a value, or nil. Rejected values cannot be serialized or
// measured; decoded values are checked too. Other operations are
// unaffected.
func NewGuarded[T any](name string, inner Traits[T], check func(T) error) Traits[T] {
	return guardedTraits[T]{inner: inner, name: name, check: check}
}

func (t guardedTraits[T]) violation(a T) error {
	if err := t.check(a); err != nil {
		return &GuardViolationError{Traits: t.name, Reason: err.Error()}
	}
	return nil
}

func (t guardedTraits[T]) Compare(a, b T) int       { return t.inner.Compare(a, b) }
func (t guardedTraits[T]) AddToHash(h *Hasher, a T) { t.inner.AddToHash(h, a) }

func (t guardedTraits[T]) CanSerialize(a T) bool {
	return t.check(a) == nil && t.inner.CanSerialize(a)
}

func (t guardedTraits[T]) Serialize(s *Serializer, a T) {
	if err := t.violation(a); err != nil {
		s.Fail(err)
		return
	}
	t.inner.Serialize(s, a)
}

func (t guardedTraits[T]) Deserialize(d *Deserializer) T {
	a := t.inner.Deserialize(d)
	if d.Err() == nil {
		if err := t.violation(a); err != nil {
			d.Fail(err)
		}
	}
	return a
}

func (t guardedTraits[T]) MeasureBytes(m *ByteMeasurer, a T) {
	if err := t.violation(a); err != nil {
		m.Fail(err)
		return
	}
	t.inner.MeasureBytes(m, a)
}

func (t guardedTraits[T]) Clone(c *Cloner, a T) T { return t.inner.Clone(c, a) }
func (t guardedTraits[T]) CheckAnalogous(tk *AnalogyTracker, a, b T) {
	RunCheck(tk, t.inner, a, b)
}
func (t guardedTraits[T]) AppendDebugString(b *DebugStringBuilder, a T) {
	t.inner.AppendDebugString(b, a)
}

type singletonTraits[T any] struct {
	name  string
	token uint32
	value T
}

// NewSingleton returns traits for a type with exactly one value. Nothing
// is written on the wire; decoding yields value.
func NewSingleton[T any](name string, token uint32, value T) Traits[T] {
	return singletonTraits[T]{name: name, token: token, value: value}
}

func (singletonTraits[T]) Compare(_, _ T) int                   { return 0 }
func (t singletonTraits[T]) AddToHash(h *Hasher, _ T)           { h.AddToken(t.token) }
func (singletonTraits[T]) CanSerialize(T) bool                  { return true }
func (singletonTraits[T]) Serialize(*Serializer, T)             {}
func (t singletonTraits[T]) Deserialize(*Deserializer) T        { return t.value }
func (singletonTraits[T]) MeasureBytes(*ByteMeasurer, T)        {}
func (t singletonTraits[T]) Clone(*Cloner, T) T                 { return t.value }
func (singletonTraits[T]) CheckAnalogous(*AnalogyTracker, T, T) {}
func (t singletonTraits[T]) AppendDebugString(b *DebugStringBuilder, _ T) {
	b.WriteString("(" + t.name + ")")
}

// Unit is the empty value.
type Unit struct{}

// UnitTraits returns traits for Unit.
func UnitTraits() Traits[Unit] {
	return NewSingleton("unit", TokenUnit, Unit{})
}
