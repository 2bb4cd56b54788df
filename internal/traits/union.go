package traits

import (
	"cmp"
	"fmt"
)

// Case is one named alternative of a union over T.
type Case[T any] struct {
	name  string
	match func(T) bool
	ops   Traits[T]
}

// Name returns the case tag written on the wire.
func (c Case[T]) Name() string { return c.name }

// NewCase returns a case selected when a value of the union's type T holds
// a U. It suits interface-typed unions.
func NewCase[T, U any](name string, tr Traits[U]) Case[T] {
	return NewTaggedCase(name, tr,
		func(a T) (U, bool) {
			u, ok := any(a).(U)
			return u, ok
		},
		func(u U) T {
			a, _ := any(u).(T)
			return a
		})
}

// NewTaggedCase returns a case with an explicit projection. match reports
// whether a belongs to the case and extracts its payload; wrap rebuilds the
// union value from a decoded payload.
func NewTaggedCase[T, U any](name string, tr Traits[U], match func(T) (U, bool), wrap func(U) T) Case[T] {
	project := func(a T) U {
		u, _ := match(a)
		return u
	}
	matches := func(a T) bool {
		_, ok := match(a)
		return ok
	}
	return Case[T]{name: name, match: matches, ops: NewConvert(tr, project, wrap)}
}

type unionTraits[T any] struct {
	name   string
	cases  []Case[T]
	byName map[string]int
}

// NewUnion returns traits for a closed union. Values order by case
// position first, then by payload. A value matching no case sorts after
// every known case and cannot be serialized.
func NewUnion[T any](name string, cases ...Case[T]) (Traits[T], error) {
	byName := make(map[string]int, len(cases))
	for i, c := range cases {
		if _, dup := byName[c.name]; dup {
			return nil, fmt.Errorf("union %s: duplicate case %q", name, c.name)
		}
		byName[c.name] = i
	}
	return &unionTraits[T]{name: name, cases: cases, byName: byName}, nil
}

// index returns the position of the first case matching a, or len(cases).
func (t *unionTraits[T]) index(a T) int {
	for i, c := range t.cases {
		if c.match(a) {
			return i
		}
	}
	return len(t.cases)
}

func (t *unionTraits[T]) unknown(a T) error {
	return &GuardViolationError{Traits: t.name, Reason: fmt.Sprintf("no case matches %T", a)}
}

func (t *unionTraits[T]) Compare(a, b T) int {
	ia, ib := t.index(a), t.index(b)
	if c := cmp.Compare(ia, ib); c != 0 {
		return c
	}
	if ia == len(t.cases) {
		return cmp.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
	}
	return t.cases[ia].ops.Compare(a, b)
}

func (t *unionTraits[T]) AddToHash(h *Hasher, a T) {
	i := t.index(a)
	if i == len(t.cases) {
		h.AddString(TokenUnion, fmt.Sprintf("%T", a))
		return
	}
	h.AddString(TokenUnion, t.cases[i].name)
	t.cases[i].ops.AddToHash(h, a)
}

func (t *unionTraits[T]) CanSerialize(a T) bool {
	i := t.index(a)
	return i < len(t.cases) && t.cases[i].ops.CanSerialize(a)
}

func (t *unionTraits[T]) Serialize(s *Serializer, a T) {
	i := t.index(a)
	if i == len(t.cases) {
		s.Fail(t.unknown(a))
		return
	}
	s.WriteString(t.cases[i].name)
	t.cases[i].ops.Serialize(s, a)
}

func (t *unionTraits[T]) Deserialize(d *Deserializer) T {
	var zero T
	tag := d.ReadString()
	if d.Err() != nil {
		return zero
	}
	i, ok := t.byName[tag]
	if !ok {
		d.Failf("union %s: unknown case %q", t.name, tag)
		return zero
	}
	return t.cases[i].ops.Deserialize(d)
}

func (t *unionTraits[T]) MeasureBytes(m *ByteMeasurer, a T) {
	i := t.index(a)
	if i == len(t.cases) {
		m.Fail(t.unknown(a))
		return
	}
	m.AddString(t.cases[i].name)
	t.cases[i].ops.MeasureBytes(m, a)
}

func (t *unionTraits[T]) Clone(c *Cloner, a T) T {
	i := t.index(a)
	if i == len(t.cases) {
		c.Fail(t.unknown(a))
		return a
	}
	return t.cases[i].ops.Clone(c, a)
}

func (t *unionTraits[T]) CheckAnalogous(tk *AnalogyTracker, a, b T) {
	ia, ib := t.index(a), t.index(b)
	if ia != ib {
		tk.SetNotAnalogous()
		return
	}
	if ia == len(t.cases) {
		checkCompare(tk, Traits[T](t), a, b)
		return
	}
	RunCheck(tk, t.cases[ia].ops, a, b)
}

func (t *unionTraits[T]) AppendDebugString(b *DebugStringBuilder, a T) {
	i := t.index(a)
	if i == len(t.cases) {
		b.Printf("(case ?%T)", a)
		return
	}
	b.WriteString("(case " + t.cases[i].name + ", ")
	t.cases[i].ops.AppendDebugString(b, a)
	b.WriteString(")")
}
