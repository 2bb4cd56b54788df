package traits

import (
	"cmp"
	"maps"
	"slices"
)

// Pair is a two-element product value.
type Pair[A, B any] struct {
	First  A
	Second B
}

// MakePair builds a Pair.
func MakePair[A, B any](a A, b B) Pair[A, B] {
	return Pair[A, B]{First: a, Second: b}
}

type pairTraits[A, B any] struct {
	first  Traits[A]
	second Traits[B]
}

// NewPair returns traits for Pair[A, B], ordered by First then Second.
func NewPair[A, B any](first Traits[A], second Traits[B]) Traits[Pair[A, B]] {
	return pairTraits[A, B]{first: first, second: second}
}

func (t pairTraits[A, B]) Compare(a, b Pair[A, B]) int {
	if c := t.first.Compare(a.First, b.First); c != 0 {
		return c
	}
	return t.second.Compare(a.Second, b.Second)
}

func (t pairTraits[A, B]) AddToHash(h *Hasher, a Pair[A, B]) {
	h.AddToken(TokenTuple2)
	t.first.AddToHash(h, a.First)
	t.second.AddToHash(h, a.Second)
}

func (t pairTraits[A, B]) CanSerialize(a Pair[A, B]) bool {
	return t.first.CanSerialize(a.First) && t.second.CanSerialize(a.Second)
}

func (t pairTraits[A, B]) Serialize(s *Serializer, a Pair[A, B]) {
	t.first.Serialize(s, a.First)
	t.second.Serialize(s, a.Second)
}

func (t pairTraits[A, B]) Deserialize(d *Deserializer) Pair[A, B] {
	first := t.first.Deserialize(d)
	second := t.second.Deserialize(d)
	return Pair[A, B]{First: first, Second: second}
}

func (t pairTraits[A, B]) MeasureBytes(m *ByteMeasurer, a Pair[A, B]) {
	t.first.MeasureBytes(m, a.First)
	t.second.MeasureBytes(m, a.Second)
}

func (t pairTraits[A, B]) Clone(c *Cloner, a Pair[A, B]) Pair[A, B] {
	return Pair[A, B]{First: t.first.Clone(c, a.First), Second: t.second.Clone(c, a.Second)}
}

func (t pairTraits[A, B]) CheckAnalogous(tk *AnalogyTracker, a, b Pair[A, B]) {
	RunCheck(tk, t.first, a.First, b.First)
	RunCheck(tk, t.second, a.Second, b.Second)
}

func (t pairTraits[A, B]) AppendDebugString(b *DebugStringBuilder, a Pair[A, B]) {
	b.WriteString("(pair ")
	t.first.AppendDebugString(b, a.First)
	b.WriteString(", ")
	t.second.AppendDebugString(b, a.Second)
	b.WriteString(")")
}

// Option is a value that may be absent.
type Option[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Option.
func Some[T any](v T) Option[T] { return Option[T]{Value: v, Valid: true} }

// None returns an absent Option.
func None[T any]() Option[T] { return Option[T]{} }

type optionTraits[T any] struct {
	inner Traits[T]
}

// NewOption returns traits for Option[T]. Absent sorts before present.
func NewOption[T any](inner Traits[T]) Traits[Option[T]] {
	return optionTraits[T]{inner: inner}
}

func (t optionTraits[T]) Compare(a, b Option[T]) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return t.inner.Compare(a.Value, b.Value)
}

func (t optionTraits[T]) AddToHash(h *Hasher, a Option[T]) {
	if !a.Valid {
		h.AddUint(TokenOption, 0, 1)
		return
	}
	h.AddUint(TokenOption, 1, 1)
	t.inner.AddToHash(h, a.Value)
}

func (t optionTraits[T]) CanSerialize(a Option[T]) bool {
	return !a.Valid || t.inner.CanSerialize(a.Value)
}

func (t optionTraits[T]) Serialize(s *Serializer, a Option[T]) {
	s.WriteBool(a.Valid)
	if a.Valid {
		t.inner.Serialize(s, a.Value)
	}
}

func (t optionTraits[T]) Deserialize(d *Deserializer) Option[T] {
	if !d.ReadBool() {
		return Option[T]{}
	}
	return Some(t.inner.Deserialize(d))
}

func (t optionTraits[T]) MeasureBytes(m *ByteMeasurer, a Option[T]) {
	m.Add(sizeBool)
	if a.Valid {
		t.inner.MeasureBytes(m, a.Value)
	}
}

func (t optionTraits[T]) Clone(c *Cloner, a Option[T]) Option[T] {
	if !a.Valid {
		return Option[T]{}
	}
	return Some(t.inner.Clone(c, a.Value))
}

func (t optionTraits[T]) CheckAnalogous(tk *AnalogyTracker, a, b Option[T]) {
	if a.Valid != b.Valid {
		tk.SetNotAnalogous()
		return
	}
	if a.Valid {
		RunCheck(tk, t.inner, a.Value, b.Value)
	}
}

func (t optionTraits[T]) AppendDebugString(b *DebugStringBuilder, a Option[T]) {
	if !a.Valid {
		b.WriteString("(none)")
		return
	}
	b.WriteString("(some ")
	t.inner.AppendDebugString(b, a.Value)
	b.WriteString(")")
}

// sequence holds the operations List and Set share.
type sequence[T any] struct {
	elem  Traits[T]
	token uint32
	head  string
}

func (t sequence[T]) compare(a, b []T) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := t.elem.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func (t sequence[T]) hash(h *Hasher, a []T) {
	h.AddCount(t.token, len(a))
	for _, v := range a {
		t.elem.AddToHash(h, v)
	}
}

func (t sequence[T]) canSerialize(a []T) bool {
	for _, v := range a {
		if !t.elem.CanSerialize(v) {
			return false
		}
	}
	return true
}

func (t sequence[T]) serialize(s *Serializer, a []T) {
	s.WriteCount(len(a))
	for _, v := range a {
		if s.Err() != nil {
			return
		}
		t.elem.Serialize(s, v)
	}
}

func (t sequence[T]) deserialize(d *Deserializer) []T {
	n := d.ReadCount()
	if d.Err() != nil {
		return nil
	}
	out := make([]T, 0, min(n, 1024))
	for i := 0; i < n && d.Err() == nil; i++ {
		out = append(out, t.elem.Deserialize(d))
	}
	return out
}

func (t sequence[T]) measure(m *ByteMeasurer, a []T) {
	m.Add(sizeInt32)
	for _, v := range a {
		t.elem.MeasureBytes(m, v)
	}
}

func (t sequence[T]) clone(c *Cloner, a []T) []T {
	if a == nil {
		return nil
	}
	out := make([]T, len(a))
	for i, v := range a {
		out[i] = t.elem.Clone(c, v)
	}
	return out
}

func (t sequence[T]) analogous(tk *AnalogyTracker, a, b []T) {
	if len(a) != len(b) {
		tk.SetNotAnalogous()
		return
	}
	for i := range a {
		RunCheck(tk, t.elem, a[i], b[i])
	}
}

func (t sequence[T]) debug(b *DebugStringBuilder, a []T) {
	writeList(b, t.head, len(a), func(i int) {
		t.elem.AppendDebugString(b, a[i])
	})
}

type listTraits[T any] struct {
	seq sequence[T]
}

// NewList returns traits for []T, ordered lexicographically.
func NewList[T any](elem Traits[T]) Traits[[]T] {
	return listTraits[T]{seq: sequence[T]{elem: elem, token: TokenList, head: "list"}}
}

func (t listTraits[T]) Compare(a, b []T) int                { return t.seq.compare(a, b) }
func (t listTraits[T]) AddToHash(h *Hasher, a []T)          { t.seq.hash(h, a) }
func (t listTraits[T]) CanSerialize(a []T) bool             { return t.seq.canSerialize(a) }
func (t listTraits[T]) Serialize(s *Serializer, a []T)      { t.seq.serialize(s, a) }
func (t listTraits[T]) Deserialize(d *Deserializer) []T     { return t.seq.deserialize(d) }
func (t listTraits[T]) MeasureBytes(m *ByteMeasurer, a []T) { t.seq.measure(m, a) }
func (t listTraits[T]) Clone(c *Cloner, a []T) []T          { return t.seq.clone(c, a) }
func (t listTraits[T]) CheckAnalogous(tk *AnalogyTracker, a, b []T) {
	t.seq.analogous(tk, a, b)
}
func (t listTraits[T]) AppendDebugString(b *DebugStringBuilder, a []T) { t.seq.debug(b, a) }

// Set is an immutable sorted set. Its order and uniqueness come from the
// element traits it was built with.
type Set[T any] struct {
	items []T
}

// NewSet builds a set from items, sorted by tr with duplicates dropped.
func NewSet[T any](tr Traits[T], items ...T) Set[T] {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, tr.Compare)
	sorted = slices.CompactFunc(sorted, func(a, b T) bool { return tr.Compare(a, b) == 0 })
	return Set[T]{items: sorted}
}

// Items returns the elements in order. The slice must not be modified.
func (s Set[T]) Items() []T { return s.items }

// Len returns the number of elements.
func (s Set[T]) Len() int { return len(s.items) }

// Contains reports whether v is in s under tr.
func (s Set[T]) Contains(tr Traits[T], v T) bool {
	_, found := slices.BinarySearchFunc(s.items, v, tr.Compare)
	return found
}

type setTraits[T any] struct {
	seq sequence[T]
}

// NewSetTraits returns traits for Set[T].
func NewSetTraits[T any](elem Traits[T]) Traits[Set[T]] {
	return setTraits[T]{seq: sequence[T]{elem: elem, token: TokenSet, head: "set"}}
}

func (t setTraits[T]) Compare(a, b Set[T]) int                { return t.seq.compare(a.items, b.items) }
func (t setTraits[T]) AddToHash(h *Hasher, a Set[T])          { t.seq.hash(h, a.items) }
func (t setTraits[T]) CanSerialize(a Set[T]) bool             { return t.seq.canSerialize(a.items) }
func (t setTraits[T]) Serialize(s *Serializer, a Set[T])      { t.seq.serialize(s, a.items) }
func (t setTraits[T]) MeasureBytes(m *ByteMeasurer, a Set[T]) { t.seq.measure(m, a.items) }

// Deserialize re-normalizes the decoded items so that a set stays sorted
// even if the element order on the wire was not.
func (t setTraits[T]) Deserialize(d *Deserializer) Set[T] {
	return NewSet(t.seq.elem, t.seq.deserialize(d)...)
}

// Clone sorts again: cloned shared elements get fresh identities, which
// may order differently from the originals.
func (t setTraits[T]) Clone(c *Cloner, a Set[T]) Set[T] {
	return NewSet(t.seq.elem, t.seq.clone(c, a.items)...)
}

func (t setTraits[T]) CheckAnalogous(tk *AnalogyTracker, a, b Set[T]) {
	t.seq.analogous(tk, a.items, b.items)
}

func (t setTraits[T]) AppendDebugString(b *DebugStringBuilder, a Set[T]) {
	t.seq.debug(b, a.items)
}

type mapTraits[K comparable, V any] struct {
	key   Traits[K]
	value Traits[V]
}

// NewMap returns traits for map[K]V. Entries are visited in key-traits
// order for every operation, so the encoding does not depend on Go's map
// iteration order.
func NewMap[K comparable, V any](key Traits[K], value Traits[V]) Traits[map[K]V] {
	return mapTraits[K, V]{key: key, value: value}
}

// entry is one map pair. Maps are walked through entries rather than by
// key lookup, since a NaN key never finds its own value.
type entry[K, V any] struct {
	key   K
	value V
}

// entries returns the pairs of m ordered by key, then by value so that
// keys comparing equal (NaNs) still have a deterministic order.
func (t mapTraits[K, V]) entries(m map[K]V) []entry[K, V] {
	out := make([]entry[K, V], 0, len(m))
	for k, v := range maps.All(m) {
		out = append(out, entry[K, V]{key: k, value: v})
	}
	slices.SortFunc(out, t.compareEntry)
	return out
}

func (t mapTraits[K, V]) compareEntry(a, b entry[K, V]) int {
	if c := t.key.Compare(a.key, b.key); c != 0 {
		return c
	}
	return t.value.Compare(a.value, b.value)
}

func (t mapTraits[K, V]) Compare(a, b map[K]V) int {
	ea, eb := t.entries(a), t.entries(b)
	for i := 0; i < len(ea) && i < len(eb); i++ {
		if c := t.compareEntry(ea[i], eb[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(ea), len(eb))
}

func (t mapTraits[K, V]) AddToHash(h *Hasher, a map[K]V) {
	h.AddCount(TokenDictionary, len(a))
	for _, e := range t.entries(a) {
		t.key.AddToHash(h, e.key)
		t.value.AddToHash(h, e.value)
	}
}

func (t mapTraits[K, V]) CanSerialize(a map[K]V) bool {
	for k, v := range a {
		if !t.key.CanSerialize(k) || !t.value.CanSerialize(v) {
			return false
		}
	}
	return true
}

func (t mapTraits[K, V]) Serialize(s *Serializer, a map[K]V) {
	s.WriteCount(len(a))
	for _, e := range t.entries(a) {
		if s.Err() != nil {
			return
		}
		t.key.Serialize(s, e.key)
		t.value.Serialize(s, e.value)
	}
}

func (t mapTraits[K, V]) Deserialize(d *Deserializer) map[K]V {
	n := d.ReadCount()
	if d.Err() != nil {
		return nil
	}
	out := make(map[K]V, min(n, 1024))
	for i := 0; i < n && d.Err() == nil; i++ {
		k := t.key.Deserialize(d)
		out[k] = t.value.Deserialize(d)
	}
	return out
}

func (t mapTraits[K, V]) MeasureBytes(m *ByteMeasurer, a map[K]V) {
	m.Add(sizeInt32)
	for _, e := range t.entries(a) {
		t.key.MeasureBytes(m, e.key)
		t.value.MeasureBytes(m, e.value)
	}
}

func (t mapTraits[K, V]) Clone(c *Cloner, a map[K]V) map[K]V {
	if a == nil {
		return nil
	}
	out := make(map[K]V, len(a))
	for _, e := range t.entries(a) {
		out[t.key.Clone(c, e.key)] = t.value.Clone(c, e.value)
	}
	return out
}

func (t mapTraits[K, V]) CheckAnalogous(tk *AnalogyTracker, a, b map[K]V) {
	ea, eb := t.entries(a), t.entries(b)
	if len(ea) != len(eb) {
		tk.SetNotAnalogous()
		return
	}
	for i := range ea {
		RunCheck(tk, t.key, ea[i].key, eb[i].key)
		RunCheck(tk, t.value, ea[i].value, eb[i].value)
	}
}

func (t mapTraits[K, V]) AppendDebugString(b *DebugStringBuilder, a map[K]V) {
	es := t.entries(a)
	writeList(b, "map", len(es), func(i int) {
		b.WriteString("(")
		t.key.AppendDebugString(b, es[i].key)
		b.WriteString(": ")
		t.value.AppendDebugString(b, es[i].value)
		b.WriteString(")")
	})
}
