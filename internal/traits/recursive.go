package traits

import (
	"fmt"
	"reflect"
)

// Recursive is a set-once cell that stands in for traits still under
// construction. Dependents built during a cycle hold the cell; every call
// is forwarded once the real traits are set. Calling through an unset cell
// panics with ErrUnresolved: it means the engine handed out a placeholder
// that it never resolved.
type Recursive[T any] struct {
	inner Traits[T]
}

// NewRecursive returns an unset cell.
func NewRecursive[T any]() *Recursive[T] {
	return &Recursive[T]{}
}

// Set resolves the cell. It fails with ErrAlreadyResolved on a second call.
func (r *Recursive[T]) Set(inner Traits[T]) error {
	if r.inner != nil {
		return ErrAlreadyResolved
	}
	if inner == nil {
		return fmt.Errorf("traits: resolving placeholder for %v with nil", reflect.TypeFor[T]())
	}
	r.inner = inner
	return nil
}

// Resolve sets the cell from an untyped artifact.
func (r *Recursive[T]) Resolve(real any) error {
	inner, ok := real.(Traits[T])
	if !ok {
		return fmt.Errorf("traits: placeholder for %v resolved with %T", reflect.TypeFor[T](), real)
	}
	return r.Set(inner)
}

// Resolved reports whether Set has succeeded.
func (r *Recursive[T]) Resolved() bool {
	return r.inner != nil
}

func (r *Recursive[T]) get() Traits[T] {
	if r.inner == nil {
		panic(ErrUnresolved)
	}
	return r.inner
}

func (r *Recursive[T]) Compare(a, b T) int                { return r.get().Compare(a, b) }
func (r *Recursive[T]) AddToHash(h *Hasher, a T)          { r.get().AddToHash(h, a) }
func (r *Recursive[T]) CanSerialize(a T) bool             { return r.get().CanSerialize(a) }
func (r *Recursive[T]) Serialize(s *Serializer, a T)      { r.get().Serialize(s, a) }
func (r *Recursive[T]) Deserialize(d *Deserializer) T     { return r.get().Deserialize(d) }
func (r *Recursive[T]) MeasureBytes(m *ByteMeasurer, a T) { r.get().MeasureBytes(m, a) }
func (r *Recursive[T]) Clone(c *Cloner, a T) T            { return r.get().Clone(c, a) }
func (r *Recursive[T]) CheckAnalogous(t *AnalogyTracker, a, b T) {
	r.get().CheckAnalogous(t, a, b)
}
func (r *Recursive[T]) AppendDebugString(b *DebugStringBuilder, a T) {
	r.get().AppendDebugString(b, a)
}
