// Package schema compiles CUE type declarations into build rules over
// dynamic ir values, so that shapes nobody wrote Go types for can be
// encoded, hashed and compared like any other.
//
// A schema declares named types under a top-level "types" struct:
//
//	types: {
//		Node: record: {
//			value: "int"
//			next:  "ref<Node>"
//		}
//		Shape: union: {
//			circle: "Circle"
//			square: "Square"
//		}
//		Origin:  singleton: true
//		Celsius: alias:     "int"
//	}
//
// Field, case and alias types are type expressions (see ParseType).
package schema

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/traitsmith/internal/traits"
)

// DeclKind is the form of a type declaration.
type DeclKind int

const (
	DeclRecord DeclKind = iota + 1
	DeclUnion
	DeclSingleton
	DeclAlias
)

func (k DeclKind) String() string {
	switch k {
	case DeclRecord:
		return "record"
	case DeclUnion:
		return "union"
	case DeclSingleton:
		return "singleton"
	case DeclAlias:
		return "alias"
	default:
		return fmt.Sprintf("DeclKind(%d)", int(k))
	}
}

// Member is a record field or a union case.
type Member struct {
	Name string
	Type TypeExpr
}

// TypeDecl is one declared type.
type TypeDecl struct {
	Name string
	Kind DeclKind
	// Fields of a record, in declaration order.
	Fields []Member
	// Cases of a union, in declaration order.
	Cases []Member
	// Target of an alias.
	Target TypeExpr
	Pos    token.Pos
}

// Schema is a compiled set of declarations.
type Schema struct {
	types  []*TypeDecl
	byName map[string]*TypeDecl
}

// Types returns the declarations in declaration order.
func (s *Schema) Types() []*TypeDecl { return s.types }

// Lookup returns the declaration of name.
func (s *Schema) Lookup(name string) (*TypeDecl, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Expr parses a type expression over the declared types and applies the
// same checks declarations get.
func (s *Schema) Expr(expr string) (TypeExpr, error) {
	e, err := ParseType(expr)
	if err != nil {
		return TypeExpr{}, err
	}
	for _, name := range e.Named() {
		if _, ok := s.byName[name]; !ok {
			return TypeExpr{}, fmt.Errorf("unknown type %q", name)
		}
	}
	if err := s.checkOptions(e.String(), e, token.NoPos); err != nil {
		return TypeExpr{}, err
	}
	return e, nil
}

// LoadFile reads and compiles a CUE schema file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	return Compile(v)
}

// CompileString compiles CUE source held in memory.
func CompileString(src string) (*Schema, error) {
	return Compile(cuecontext.New().CompileString(src))
}

// Compile builds a Schema from a CUE value holding a "types" struct.
// Uses the CUE SDK's Go API directly (not the CLI).
func Compile(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, &CompileError{Field: "types", Message: "types is required", Pos: v.Pos()}
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	s := &Schema{byName: make(map[string]*TypeDecl)}
	for iter.Next() {
		decl, err := compileDecl(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		s.types = append(s.types, decl)
		s.byName[decl.Name] = decl
	}
	if len(s.types) == 0 {
		return nil, &CompileError{Field: "types", Message: "at least one type is required", Pos: typesVal.Pos()}
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func compileDecl(name string, v cue.Value) (*TypeDecl, error) {
	field := "types." + name
	if reserved(name) {
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("%q is a reserved type name", name), Pos: v.Pos()}
	}
	decl := &TypeDecl{Name: name, Pos: v.Pos()}

	var forms []string
	for _, form := range []string{"record", "union", "singleton", "alias"} {
		if v.LookupPath(cue.ParsePath(form)).Exists() {
			forms = append(forms, form)
		}
	}
	if len(forms) != 1 {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("exactly one of record, union, singleton or alias is required, found %v", forms),
			Pos:     v.Pos(),
		}
	}

	formVal := v.LookupPath(cue.ParsePath(forms[0]))
	var err error
	switch forms[0] {
	case "record":
		decl.Kind = DeclRecord
		decl.Fields, err = parseFields(field+".record", name, formVal)
	case "union":
		decl.Kind = DeclUnion
		decl.Cases, err = parseMembers(field+".union", formVal)
		if err == nil && len(decl.Cases) == 0 {
			err = &CompileError{Field: field + ".union", Message: "at least one case is required", Pos: formVal.Pos()}
		}
	case "singleton":
		decl.Kind = DeclSingleton
	case "alias":
		decl.Kind = DeclAlias
		decl.Target, err = parseTypeValue(field+".alias", formVal)
	}
	if err != nil {
		return nil, err
	}
	return decl, nil
}

// parseFields accepts either a struct of name: "type" pairs or a list of
// {name, type} entries. The list form may repeat a field; repeats must
// agree on the type and are dropped.
func parseFields(field, record string, v cue.Value) ([]Member, error) {
	if v.IncompleteKind() != cue.ListKind {
		return parseMembers(field, v)
	}

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var members []Member
	for iter.Next() {
		entry := iter.Value()
		name, err := entry.LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "field entries need a name", Pos: entry.Pos()}
		}
		typ, err := parseTypeValue(field+"."+name, entry.LookupPath(cue.ParsePath("type")))
		if err != nil {
			return nil, err
		}
		i := slices.IndexFunc(members, func(m Member) bool { return m.Name == name })
		if i >= 0 {
			if prev := members[i].Type.String(); prev != typ.String() {
				return nil, &traits.TypeMismatchError{Record: record, Field: name, First: prev, Second: typ.String()}
			}
			continue
		}
		members = append(members, Member{Name: name, Type: typ})
	}
	return members, nil
}

func parseMembers(field string, v cue.Value) ([]Member, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var members []Member
	for iter.Next() {
		name := iter.Selector().Unquoted()
		typ, err := parseTypeValue(field+"."+name, iter.Value())
		if err != nil {
			return nil, err
		}
		members = append(members, Member{Name: name, Type: typ})
	}
	return members, nil
}

func parseTypeValue(field string, v cue.Value) (TypeExpr, error) {
	if !v.Exists() {
		return TypeExpr{}, &CompileError{Field: field, Message: "type is required", Pos: v.Pos()}
	}
	s, err := v.String()
	if err != nil {
		return TypeExpr{}, &CompileError{Field: field, Message: "type must be a string expression", Pos: v.Pos()}
	}
	e, err := ParseType(s)
	if err != nil {
		return TypeExpr{}, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return e, nil
}

// validate checks cross-declaration constraints: every referenced type is
// declared, aliases do not chase themselves, and neither option nor ref
// wraps a type whose values may already be null.
func (s *Schema) validate() error {
	for _, d := range s.types {
		for _, ref := range d.exprs() {
			for _, name := range ref.expr.Named() {
				if _, ok := s.byName[name]; !ok {
					return &CompileError{Field: ref.field, Message: fmt.Sprintf("unknown type %q", name), Pos: d.Pos}
				}
			}
			if err := s.checkOptions(ref.field, ref.expr, d.Pos); err != nil {
				return err
			}
		}
	}
	for _, d := range s.types {
		if d.Kind != DeclAlias {
			continue
		}
		if path := s.aliasCycle(d.Name); path != nil {
			return &CompileError{Field: "types." + d.Name + ".alias", Message: fmt.Sprintf("alias cycle %v", path), Pos: d.Pos}
		}
	}
	return nil
}

type exprRef struct {
	field string
	expr  TypeExpr
}

func (d *TypeDecl) exprs() []exprRef {
	var out []exprRef
	prefix := "types." + d.Name + "." + d.Kind.String()
	for _, m := range d.Fields {
		out = append(out, exprRef{prefix + "." + m.Name, m.Type})
	}
	for _, m := range d.Cases {
		out = append(out, exprRef{prefix + "." + m.Name, m.Type})
	}
	if d.Kind == DeclAlias {
		out = append(out, exprRef{prefix, d.Target})
	}
	return out
}

func (s *Schema) checkOptions(field string, e TypeExpr, pos token.Pos) error {
	for cur := &e; cur != nil; cur = cur.Elem {
		wraps := cur.Kind == ExprOption || cur.Kind == ExprRef
		if wraps && s.nullable(*cur.Elem, nil) {
			return &CompileError{
				Field:   field,
				Message: fmt.Sprintf("%s wraps a type whose values may be null", cur),
				Pos:     pos,
			}
		}
	}
	return nil
}

// nullable reports whether ir.Null is a value of e.
func (s *Schema) nullable(e TypeExpr, seen map[string]bool) bool {
	switch e.Kind {
	case ExprOption, ExprRef:
		return true
	case ExprPrimitive:
		return e.Name == TypeUnit
	case ExprNamed:
		d := s.byName[e.Name]
		switch d.Kind {
		case DeclSingleton:
			return true
		case DeclAlias:
			if seen[d.Name] {
				return false
			}
			if seen == nil {
				seen = make(map[string]bool)
			}
			seen[d.Name] = true
			return s.nullable(d.Target, seen)
		}
	}
	return false
}

// aliasCycle follows plain alias targets from name and returns the path if
// it comes back to name.
func (s *Schema) aliasCycle(name string) []string {
	path := []string{name}
	cur := s.byName[name]
	for cur.Kind == DeclAlias && cur.Target.Kind == ExprNamed {
		next := cur.Target.Name
		path = append(path, next)
		if next == name {
			return path
		}
		if slices.Contains(path[:len(path)-1], next) {
			return nil // cycle that does not include name; reported from its own member
		}
		cur = s.byName[next]
	}
	return nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsCompileError reports whether err is or wraps a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
