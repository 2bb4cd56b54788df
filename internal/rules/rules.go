// Package rules provides build rules that produce value traits for Go
// types. Each constructor returns a rule for exactly one key; stores
// combine them with builtin traits to resolve whole type graphs, including
// types that reach themselves through a Box.
package rules

import (
	"fmt"

	"github.com/roach88/traitsmith/internal/artifact"
	"github.com/roach88/traitsmith/internal/traits"
)

// TypeKey returns the TypeTraits key of T.
func TypeKey[T any]() artifact.Key {
	return artifact.TypeTraitsKey(artifact.TypeOf[T]())
}

// need fetches the traits for key from available.
func need[T any](available map[artifact.Key]artifact.Artifact, key artifact.Key) (traits.Traits[T], error) {
	return artifact.As[traits.Traits[T]](available, key)
}

// keyed is the part every single-key rule shares.
type keyed struct {
	key  artifact.Key
	name string
}

func (r keyed) CanBuild(k artifact.Key) bool { return k == r.key }
func (r keyed) String() string               { return r.name }

// traitsRule builds TypeTraits(T) from a fixed prerequisite list. It can
// stand in for T on a construction cycle with a traits.Recursive cell.
type traitsRule[T any] struct {
	keyed
	prereqs []artifact.Key
	build   func(available map[artifact.Key]artifact.Artifact) (traits.Traits[T], error)
}

func newTraitsRule[T any](name string, prereqs []artifact.Key,
	build func(map[artifact.Key]artifact.Artifact) (traits.Traits[T], error)) *traitsRule[T] {
	return &traitsRule[T]{
		keyed:   keyed{key: TypeKey[T](), name: name},
		prereqs: prereqs,
		build:   build,
	}
}

func (r *traitsRule[T]) Prerequisites(artifact.Key) []artifact.Key {
	return r.prereqs
}

func (r *traitsRule[T]) Build(_ artifact.Key, available map[artifact.Key]artifact.Artifact) (artifact.Artifact, error) {
	tr, err := r.build(available)
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// NewPlaceholder implements artifact.PlaceholderFactory.
func (r *traitsRule[T]) NewPlaceholder(artifact.Key) artifact.Placeholder {
	return traits.NewRecursive[T]()
}

// Fixed returns a rule that builds TypeTraits(T) as tr, with no
// prerequisites.
func Fixed[T any](tr traits.Traits[T]) artifact.Rule {
	return newTraitsRule(fmt.Sprintf("fixed %s", artifact.TypeOf[T]()), nil,
		func(map[artifact.Key]artifact.Artifact) (traits.Traits[T], error) {
			return tr, nil
		})
}

// Pair returns the rule for traits.Pair[A, B].
func Pair[A, B any]() artifact.Rule {
	ka, kb := TypeKey[A](), TypeKey[B]()
	return newTraitsRule(fmt.Sprintf("pair(%s, %s)", ka.Type(), kb.Type()), []artifact.Key{ka, kb},
		func(av map[artifact.Key]artifact.Artifact) (traits.Traits[traits.Pair[A, B]], error) {
			first, err := need[A](av, ka)
			if err != nil {
				return nil, err
			}
			second, err := need[B](av, kb)
			if err != nil {
				return nil, err
			}
			return traits.NewPair(first, second), nil
		})
}

// Option returns the rule for traits.Option[T].
func Option[T any]() artifact.Rule {
	k := TypeKey[T]()
	return newTraitsRule("option "+k.Type().Name(), []artifact.Key{k},
		func(av map[artifact.Key]artifact.Artifact) (traits.Traits[traits.Option[T]], error) {
			inner, err := need[T](av, k)
			if err != nil {
				return nil, err
			}
			return traits.NewOption(inner), nil
		})
}

// List returns the rule for []T.
func List[T any]() artifact.Rule {
	k := TypeKey[T]()
	return newTraitsRule("list "+k.Type().Name(), []artifact.Key{k},
		func(av map[artifact.Key]artifact.Artifact) (traits.Traits[[]T], error) {
			elem, err := need[T](av, k)
			if err != nil {
				return nil, err
			}
			return traits.NewList(elem), nil
		})
}

// Set returns the rule for traits.Set[T].
func Set[T any]() artifact.Rule {
	k := TypeKey[T]()
	return newTraitsRule("set "+k.Type().Name(), []artifact.Key{k},
		func(av map[artifact.Key]artifact.Artifact) (traits.Traits[traits.Set[T]], error) {
			elem, err := need[T](av, k)
			if err != nil {
				return nil, err
			}
			return traits.NewSetTraits(elem), nil
		})
}

// Map returns the rule for map[K]V.
func Map[K comparable, V any]() artifact.Rule {
	kk, kv := TypeKey[K](), TypeKey[V]()
	return newTraitsRule(fmt.Sprintf("map(%s, %s)", kk.Type(), kv.Type()), []artifact.Key{kk, kv},
		func(av map[artifact.Key]artifact.Artifact) (traits.Traits[map[K]V], error) {
			key, err := need[K](av, kk)
			if err != nil {
				return nil, err
			}
			value, err := need[V](av, kv)
			if err != nil {
				return nil, err
			}
			return traits.NewMap(key, value), nil
		})
}

// Box returns the rule for *traits.Box[T], the shared-reference container.
func Box[T any]() artifact.Rule {
	k := TypeKey[T]()
	return newTraitsRule("box "+k.Type().Name(), []artifact.Key{k},
		func(av map[artifact.Key]artifact.Artifact) (traits.Traits[*traits.Box[T]], error) {
			payload, err := need[T](av, k)
			if err != nil {
				return nil, err
			}
			return traits.BoxTraits(payload), nil
		})
}

// Convert returns a rule that builds TypeTraits(T) from TypeTraits(U)
// through a conversion pair.
func Convert[T, U any](to func(T) U, from func(U) T) artifact.Rule {
	k := TypeKey[U]()
	return newTraitsRule(fmt.Sprintf("convert %s via %s", artifact.TypeOf[T](), k.Type()), []artifact.Key{k},
		func(av map[artifact.Key]artifact.Artifact) (traits.Traits[T], error) {
			inner, err := need[U](av, k)
			if err != nil {
				return nil, err
			}
			return traits.NewConvert(inner, to, from), nil
		})
}

// Singleton returns the rule for a type whose only value is value.
func Singleton[T any](name string, value T) artifact.Rule {
	return newTraitsRule("singleton "+name, nil,
		func(map[artifact.Key]artifact.Artifact) (traits.Traits[T], error) {
			return traits.NewSingleton(name, traits.TokenUnit, value), nil
		})
}

// comparatorRule derives Comparator(T) from TypeTraits(T).
type comparatorRule[T any] struct {
	keyed
	traitsKey artifact.Key
}

// Comparator returns the rule that builds a func(a, b T) int for T.
func Comparator[T any]() artifact.Rule {
	return &comparatorRule[T]{
		keyed:     keyed{key: artifact.ComparatorKey(artifact.TypeOf[T]()), name: "comparator " + artifact.TypeOf[T]().Name()},
		traitsKey: TypeKey[T](),
	}
}

func (r *comparatorRule[T]) Prerequisites(artifact.Key) []artifact.Key {
	return []artifact.Key{r.traitsKey}
}

func (r *comparatorRule[T]) Build(_ artifact.Key, available map[artifact.Key]artifact.Artifact) (artifact.Artifact, error) {
	tr, err := need[T](available, r.traitsKey)
	if err != nil {
		return nil, err
	}
	return traits.Comparator(tr), nil
}
