package rules

import (
	"github.com/roach88/traitsmith/internal/artifact"
	"github.com/roach88/traitsmith/internal/traits"
)

// Builtins returns fixed rules for the primitive types.
func Builtins() []artifact.Rule {
	return []artifact.Rule{
		Fixed(traits.Bool()),
		Fixed(traits.Int8()),
		Fixed(traits.Int16()),
		Fixed(traits.Int32()),
		Fixed(traits.Int64()),
		Fixed(traits.Int()),
		Fixed(traits.Uint8()),
		Fixed(traits.Uint16()),
		Fixed(traits.Uint32()),
		Fixed(traits.Uint64()),
		Fixed(traits.Float32()),
		Fixed(traits.Float64()),
		Fixed(traits.String()),
		Fixed(traits.Bytes()),
		Fixed(traits.UUID()),
		Fixed(traits.Time()),
		Fixed(traits.UnitTraits()),
	}
}

// Seed adds the primitive traits to s directly, bypassing rules.
func Seed(s *artifact.Store) {
	seed(s, traits.Bool())
	seed(s, traits.Int8())
	seed(s, traits.Int16())
	seed(s, traits.Int32())
	seed(s, traits.Int64())
	seed(s, traits.Int())
	seed(s, traits.Uint8())
	seed(s, traits.Uint16())
	seed(s, traits.Uint32())
	seed(s, traits.Uint64())
	seed(s, traits.Float32())
	seed(s, traits.Float64())
	seed(s, traits.String())
	seed(s, traits.Bytes())
	seed(s, traits.UUID())
	seed(s, traits.Time())
	seed(s, traits.UnitTraits())
}

func seed[T any](s *artifact.Store, tr traits.Traits[T]) {
	s.Add(TypeKey[T](), tr)
}

// TraitsFor resolves the traits of T in s.
func TraitsFor[T any](s *artifact.Store) (traits.Traits[T], error) {
	return artifact.Get[traits.Traits[T]](s, TypeKey[T]())
}

// ComparatorFor resolves the comparison function of T in s.
func ComparatorFor[T any](s *artifact.Store) (func(a, b T) int, error) {
	return artifact.Get[func(a, b T) int](s, artifact.ComparatorKey(artifact.TypeOf[T]()))
}
