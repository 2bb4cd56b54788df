package traits

import (
	"math"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// nullRef is the wire id of an absent container.
const nullRef int32 = -1

// SharedRefOptions describes a mutable container type C whose instances are
// identified by K and hold a payload of type V.
type SharedRefOptions[C any, K comparable, V any] struct {
	// Name is used in debug output and error messages.
	Name string

	// Identity extracts the identity key. Two containers with the same
	// key are the same container.
	Identity func(C) K
	// IdentityTraits orders and hashes identity keys.
	IdentityTraits Traits[K]

	// Payload reads a container's current contents.
	Payload func(C) V
	// PayloadTraits handles the contents.
	PayloadTraits Traits[V]

	// New creates an empty container with a fresh identity. Fill writes
	// the payload into a container created by New.
	New  func() C
	Fill func(C, V)

	// IsNull reports an absent container, encoded as id -1. May be nil
	// when C has no absent state.
	IsNull func(C) bool
	// Null returns the absent container.
	Null func() C

	// Scope selects the reference tables. Traits with the same scope share
	// ids within a traversal; zero allocates a private scope.
	Scope StateID
}

var typeScopes sync.Map // reflect.Type -> StateID

// TypeScope returns the scope shared by every traits value for container
// type C, so that all references to one container agree on its id no
// matter which traits instance reaches it.
func TypeScope[C any]() StateID {
	t := reflect.TypeFor[C]()
	if id, ok := typeScopes.Load(t); ok {
		return id.(StateID)
	}
	id, _ := typeScopes.LoadOrStore(t, NewStateID())
	return id.(StateID)
}

// sharedTraits is the identity-aware codec. Each traversal keeps a table
// mapping identity keys to sequential ids; a container's payload is
// handled once, from the traversal queue, the first time an id is
// assigned. Compare and hash look at the identity key only, so walking a
// self-containing structure always terminates.
type sharedTraits[C any, K comparable, V any] struct {
	opts SharedRefOptions[C, K, V]
	id   StateID
}

// NewSharedRef returns traits for a shared container type.
func NewSharedRef[C any, K comparable, V any](opts SharedRefOptions[C, K, V]) Traits[C] {
	id := opts.Scope
	if id == 0 {
		id = NewStateID()
	}
	return &sharedTraits[C, K, V]{opts: opts, id: id}
}

// refTable assigns sequential ids to identity keys during encoding,
// measuring and debug rendering.
type refTable[K comparable] struct {
	ids map[K]int32
}

func newRefTable[K comparable]() *refTable[K] {
	return &refTable[K]{ids: make(map[K]int32)}
}

// assign returns the id for k and whether it was assigned just now.
func (t *refTable[K]) assign(k K) (int32, bool) {
	if id, ok := t.ids[k]; ok {
		return id, false
	}
	id := int32(len(t.ids))
	t.ids[k] = id
	return id, true
}

// decodeTable holds the containers created so far, indexed by id.
type decodeTable[C any] struct {
	byID []C
}

// cloneTable maps source identities to their copies.
type cloneTable[K comparable, C any] struct {
	copies map[K]C
}

// analogyTable pairs identities on the two sides one to one.
type analogyTable[K comparable] struct {
	left  map[K]K
	right map[K]K
}

func (t *sharedTraits[C, K, V]) null(a C) bool {
	return t.opts.IsNull != nil && t.opts.IsNull(a)
}

func (t *sharedTraits[C, K, V]) Compare(a, b C) int {
	na, nb := t.null(a), t.null(b)
	switch {
	case na && nb:
		return 0
	case na:
		return -1
	case nb:
		return 1
	}
	return t.opts.IdentityTraits.Compare(t.opts.Identity(a), t.opts.Identity(b))
}

func (t *sharedTraits[C, K, V]) AddToHash(h *Hasher, a C) {
	if t.null(a) {
		h.AddUint(TokenSharedRef, 0, 1)
		return
	}
	h.AddUint(TokenSharedRef, 1, 1)
	t.opts.IdentityTraits.AddToHash(h, t.opts.Identity(a))
}

// CanSerialize holds for every container: the payload is checked when the
// deferred payload is written, where a rejection fails the traversal.
func (t *sharedTraits[C, K, V]) CanSerialize(C) bool { return true }

func (t *sharedTraits[C, K, V]) Serialize(s *Serializer, a C) {
	if t.null(a) {
		s.WriteInt32(nullRef)
		return
	}
	table := State(s, t.id, newRefTable[K])
	id, fresh := table.assign(t.opts.Identity(a))
	if id == math.MaxInt32 {
		s.Fail(&GuardViolationError{Traits: t.opts.Name, Reason: "too many shared references"})
		return
	}
	s.WriteInt32(id)
	if fresh {
		payload := t.opts.Payload(a)
		s.Enqueue(func() {
			if !t.opts.PayloadTraits.CanSerialize(payload) {
				s.Fail(&GuardViolationError{Traits: t.opts.Name, Reason: "payload cannot be serialized"})
				return
			}
			t.opts.PayloadTraits.Serialize(s, payload)
		})
	}
}

func (t *sharedTraits[C, K, V]) Deserialize(d *Deserializer) C {
	var zero C
	id := d.ReadInt32()
	if d.Err() != nil {
		return zero
	}
	if id == nullRef && t.opts.Null != nil {
		return t.opts.Null()
	}
	table := State(d, t.id, func() *decodeTable[C] { return &decodeTable[C]{} })
	switch {
	case id >= 0 && int(id) < len(table.byID):
		return table.byID[id]
	case int(id) != len(table.byID):
		// Ids are assigned in order of first appearance, and the decoder
		// reads in the same order, so a new id is always the next one.
		d.Failf("%s: reference id %d out of sequence, expected %d", t.opts.Name, id, len(table.byID))
		return zero
	}
	c := t.opts.New()
	table.byID = append(table.byID, c)
	d.Enqueue(func() {
		v := t.opts.PayloadTraits.Deserialize(d)
		if d.Err() == nil {
			t.opts.Fill(c, v)
		}
	})
	return c
}

func (t *sharedTraits[C, K, V]) MeasureBytes(m *ByteMeasurer, a C) {
	m.Add(sizeInt32)
	if t.null(a) {
		return
	}
	table := State(m, t.id, newRefTable[K])
	if _, fresh := table.assign(t.opts.Identity(a)); fresh {
		payload := t.opts.Payload(a)
		m.Enqueue(func() { t.opts.PayloadTraits.MeasureBytes(m, payload) })
	}
}

func (t *sharedTraits[C, K, V]) Clone(c *Cloner, a C) C {
	if t.null(a) {
		return a
	}
	table := State(c, t.id, func() *cloneTable[K, C] { return &cloneTable[K, C]{copies: make(map[K]C)} })
	k := t.opts.Identity(a)
	if dup, ok := table.copies[k]; ok {
		return dup
	}
	dup := t.opts.New()
	table.copies[k] = dup
	payload := t.opts.Payload(a)
	c.Enqueue(func() {
		v := t.opts.PayloadTraits.Clone(c, payload)
		if c.Err() == nil {
			t.opts.Fill(dup, v)
		}
	})
	return dup
}

func (t *sharedTraits[C, K, V]) CheckAnalogous(tk *AnalogyTracker, a, b C) {
	na, nb := t.null(a), t.null(b)
	if na || nb {
		if na != nb {
			tk.SetNotAnalogous()
		}
		return
	}
	table := State(tk, t.id, func() *analogyTable[K] {
		return &analogyTable[K]{left: make(map[K]K), right: make(map[K]K)}
	})
	ka, kb := t.opts.Identity(a), t.opts.Identity(b)
	pa, seenA := table.left[ka]
	pb, seenB := table.right[kb]
	switch {
	case seenA && seenB:
		if pa != kb || pb != ka {
			tk.SetNotAnalogous()
		}
		return
	case seenA || seenB:
		tk.SetNotAnalogous()
		return
	}
	table.left[ka] = kb
	table.right[kb] = ka
	va, vb := t.opts.Payload(a), t.opts.Payload(b)
	tk.Enqueue(func() { RunCheck(tk, t.opts.PayloadTraits, va, vb) })
}

func (t *sharedTraits[C, K, V]) AppendDebugString(b *DebugStringBuilder, a C) {
	if t.null(a) {
		b.WriteString("(" + t.opts.Name + " nil)")
		return
	}
	table := State(b, t.id, newRefTable[K])
	id, fresh := table.assign(t.opts.Identity(a))
	b.Printf("(%s #%d)", t.opts.Name, id)
	if fresh {
		payload := t.opts.Payload(a)
		b.Enqueue(func() {
			b.Printf(", (%s #%d = ", t.opts.Name, id)
			t.opts.PayloadTraits.AppendDebugString(b, payload)
			b.WriteString(")")
		})
	}
}

// Box is a mutable, shareable container. Two boxes are the same box only
// if they share an identity, whatever their contents.
type Box[T any] struct {
	id    uuid.UUID
	Value T
}

// NewBox returns a box holding v with a fresh time-ordered identity.
func NewBox[T any](v T) *Box[T] {
	return &Box[T]{id: uuid.Must(uuid.NewV7()), Value: v}
}

// ID returns the box's identity.
func (b *Box[T]) ID() uuid.UUID { return b.id }

// BoxTraits returns traits for *Box[T]. A nil box is encoded as the null
// reference.
func BoxTraits[T any](value Traits[T]) Traits[*Box[T]] {
	return NewSharedRef(SharedRefOptions[*Box[T], uuid.UUID, T]{
		Name:           "box",
		Identity:       (*Box[T]).ID,
		IdentityTraits: UUID(),
		Payload:        func(b *Box[T]) T { return b.Value },
		PayloadTraits:  value,
		New: func() *Box[T] {
			var zero T
			return NewBox(zero)
		},
		Fill:   func(b *Box[T], v T) { b.Value = v },
		IsNull: func(b *Box[T]) bool { return b == nil },
		Null:   func() *Box[T] { return nil },
		Scope:  TypeScope[*Box[T]](),
	})
}
