package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/traitsmith/internal/artifact"
	"github.com/roach88/traitsmith/internal/ir"
	"github.com/roach88/traitsmith/internal/traits"
)

// typePrefix keeps schema types apart from Go types in key space.
const typePrefix = "schema:"

// TypeRef returns the artifact type descriptor of e.
func TypeRef(e TypeExpr) artifact.TypeRef {
	return artifact.NamedType(typePrefix + e.String())
}

// TraitsKey returns the TypeTraits key of e.
func TraitsKey(e TypeExpr) artifact.Key {
	return artifact.TypeTraitsKey(TypeRef(e))
}

// exprOf recovers the expression a schema key names.
func exprOf(ref artifact.TypeRef) (TypeExpr, bool) {
	name, ok := strings.CutPrefix(ref.Name(), typePrefix)
	if !ok {
		return TypeExpr{}, false
	}
	e, err := ParseType(name)
	if err != nil {
		return TypeExpr{}, false
	}
	return e, true
}

// Rules implements artifact.Supplier. There is one rule per declared type
// and per record field, plus two generic rules: one for primitives and
// constructor expressions such as list<Node>, and one deriving
// comparators.
func (s *Schema) Rules() []artifact.Rule {
	var out []artifact.Rule
	for _, d := range s.types {
		out = append(out, &declRule{decl: d})
		for _, f := range d.Fields {
			out = append(out, &fieldRule{record: d.Name, field: f})
		}
	}
	return append(out, exprRule{}, comparatorRule{})
}

// Traits returns the traits of the type expression expr, building them in
// store. The schema's rules must be in the store's catalog.
func (s *Schema) Traits(store *artifact.Store, expr string) (traits.Traits[ir.Value], error) {
	e, err := s.Expr(expr)
	if err != nil {
		return nil, err
	}
	return artifact.Get[traits.Traits[ir.Value]](store, TraitsKey(e))
}

// valueTraits fetches a built prerequisite.
func valueTraits(available map[artifact.Key]artifact.Artifact, e TypeExpr) (traits.Traits[ir.Value], error) {
	return artifact.As[traits.Traits[ir.Value]](available, TraitsKey(e))
}

// recursive is shared by every rule producing TypeTraits: any of them may
// sit on a construction cycle.
type recursive struct{}

// NewPlaceholder implements artifact.PlaceholderFactory.
func (recursive) NewPlaceholder(artifact.Key) artifact.Placeholder {
	return traits.NewRecursive[ir.Value]()
}

// declRule builds the traits of one declared type.
type declRule struct {
	recursive
	decl *TypeDecl
}

func (r *declRule) String() string {
	return fmt.Sprintf("%s %s", r.decl.Kind, r.decl.Name)
}

func (r *declRule) key() artifact.Key {
	return TraitsKey(TypeExpr{Kind: ExprNamed, Name: r.decl.Name})
}

func (r *declRule) CanBuild(k artifact.Key) bool { return k == r.key() }

func (r *declRule) Prerequisites(artifact.Key) []artifact.Key {
	d := r.decl
	switch d.Kind {
	case DeclRecord:
		keys := make([]artifact.Key, len(d.Fields))
		for i, f := range d.Fields {
			keys[i] = artifact.FieldKey(r.key().Type(), f.Name)
		}
		return keys
	case DeclUnion:
		keys := make([]artifact.Key, len(d.Cases))
		for i, c := range d.Cases {
			keys[i] = TraitsKey(c.Type)
		}
		return keys
	case DeclAlias:
		return []artifact.Key{TraitsKey(d.Target)}
	default:
		return nil
	}
}

func (r *declRule) Build(_ artifact.Key, available map[artifact.Key]artifact.Artifact) (artifact.Artifact, error) {
	d := r.decl
	switch d.Kind {
	case DeclRecord:
		fields := make([]traits.Field[ir.Value], 0, len(d.Fields))
		for _, k := range r.Prerequisites(r.key()) {
			f, err := artifact.As[traits.Field[ir.Value]](available, k)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		return recordTraits(d.Name, fields)
	case DeclUnion:
		cases := make([]traits.Case[ir.Value], 0, len(d.Cases))
		for _, c := range d.Cases {
			tr, err := valueTraits(available, c.Type)
			if err != nil {
				return nil, err
			}
			cases = append(cases, variantCase(c.Name, tr))
		}
		return traits.NewUnion(d.Name, cases...)
	case DeclAlias:
		return valueTraits(available, d.Target)
	case DeclSingleton:
		return singletonTraits(d.Name), nil
	default:
		return nil, fmt.Errorf("declaration %s has kind %v", d.Name, d.Kind)
	}
}

// fieldRule builds FieldTraits for one record field.
type fieldRule struct {
	record string
	field  Member
}

func (r *fieldRule) String() string {
	return fmt.Sprintf("field %s.%s", r.record, r.field.Name)
}

func (r *fieldRule) key() artifact.Key {
	return artifact.FieldKey(TypeRef(TypeExpr{Kind: ExprNamed, Name: r.record}), r.field.Name)
}

func (r *fieldRule) CanBuild(k artifact.Key) bool { return k == r.key() }

func (r *fieldRule) Prerequisites(artifact.Key) []artifact.Key {
	return []artifact.Key{TraitsKey(r.field.Type)}
}

func (r *fieldRule) Build(_ artifact.Key, available map[artifact.Key]artifact.Artifact) (artifact.Artifact, error) {
	tr, err := valueTraits(available, r.field.Type)
	if err != nil {
		return nil, err
	}
	return recordField(r.field.Name, r.field.Type.String(), tr), nil
}

// NewPlaceholder implements artifact.PlaceholderFactory.
func (r *fieldRule) NewPlaceholder(artifact.Key) artifact.Placeholder {
	return traits.NewRecursiveField[ir.Value](r.field.Name, r.field.Type.String())
}

// exprRule builds primitives and constructor applications for any element
// type, declared or not.
type exprRule struct {
	recursive
}

func (exprRule) String() string { return "schema expressions" }

func (exprRule) CanBuild(k artifact.Key) bool {
	if k.Kind() != artifact.KindTypeTraits {
		return false
	}
	e, ok := exprOf(k.Type())
	return ok && e.Kind != ExprNamed
}

func (exprRule) Prerequisites(k artifact.Key) []artifact.Key {
	e, _ := exprOf(k.Type())
	if e.Elem == nil {
		return nil
	}
	return []artifact.Key{TraitsKey(*e.Elem)}
}

func (exprRule) Build(k artifact.Key, available map[artifact.Key]artifact.Artifact) (artifact.Artifact, error) {
	e, _ := exprOf(k.Type())
	if e.Kind == ExprPrimitive {
		return primitiveTraits(e.Name)
	}
	elem, err := valueTraits(available, *e.Elem)
	if err != nil {
		return nil, err
	}
	switch e.Kind {
	case ExprList:
		return listTraits(elem), nil
	case ExprSet:
		return setTraits(elem), nil
	case ExprOption:
		return optionTraits(elem), nil
	case ExprRef:
		return refTraits(elem), nil
	default:
		return nil, fmt.Errorf("no traits for %s", e)
	}
}

// comparatorRule derives Comparator keys of schema types.
type comparatorRule struct{}

func (comparatorRule) String() string { return "schema comparators" }

func (comparatorRule) CanBuild(k artifact.Key) bool {
	if k.Kind() != artifact.KindComparator {
		return false
	}
	_, ok := exprOf(k.Type())
	return ok
}

func (comparatorRule) Prerequisites(k artifact.Key) []artifact.Key {
	return []artifact.Key{artifact.TypeTraitsKey(k.Type())}
}

func (comparatorRule) Build(k artifact.Key, available map[artifact.Key]artifact.Artifact) (artifact.Artifact, error) {
	tr, err := artifact.As[traits.Traits[ir.Value]](available, artifact.TypeTraitsKey(k.Type()))
	if err != nil {
		return nil, err
	}
	return traits.Comparator(tr), nil
}
