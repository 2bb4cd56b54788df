package schema

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/traitsmith/internal/ir"
)

// LoadError reports a YAML value that does not fit its type.
type LoadError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d col %d: %s: %s", e.Line, e.Column, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// IsLoadError reports whether err is or wraps a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// ParseValue parses a YAML document holding a value of type expr.
func (s *Schema) ParseValue(expr string, data []byte) (ir.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse value: %w", err)
	}
	return s.LoadValue(expr, &doc)
}

// LoadValue converts a YAML node into a value of type expr.
//
// Records are mappings; a missing field is null when its type allows it.
// A union value is a single-entry mapping from case name to payload, or
// the bare case name when the payload is null. Bytes are base64. A ref is
// null or any value; anchored nodes become shared cells, so every alias of
// an anchor under a ref type yields the same cell, cycles included.
func (s *Schema) LoadValue(expr string, node *yaml.Node) (ir.Value, error) {
	e, err := s.Expr(expr)
	if err != nil {
		return nil, err
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, &LoadError{Path: "$", Message: "empty document"}
		}
		node = node.Content[0]
	}
	l := &loader{
		schema:    s,
		cells:     make(map[*yaml.Node]anchoredCell),
		expanding: make(map[*yaml.Node]bool),
	}
	return l.load(e, node, "$")
}

type anchoredCell struct {
	cell *ir.Cell
	typ  string
}

type loader struct {
	schema    *Schema
	cells     map[*yaml.Node]anchoredCell
	expanding map[*yaml.Node]bool
}

func (l *loader) fail(n *yaml.Node, path, format string, args ...any) error {
	return &LoadError{Path: path, Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func (l *loader) load(e TypeExpr, n *yaml.Node, path string) (ir.Value, error) {
	if e.Kind == ExprRef {
		return l.loadRef(e, n, path)
	}
	if n.Kind == yaml.AliasNode {
		target := n.Alias
		if l.expanding[target] {
			return nil, l.fail(n, path, "alias *%s refers to itself outside a ref", n.Value)
		}
		l.expanding[target] = true
		defer delete(l.expanding, target)
		return l.load(e, target, path)
	}

	switch e.Kind {
	case ExprPrimitive:
		return l.loadPrimitive(e.Name, n, path)
	case ExprList, ExprSet:
		if n.Kind != yaml.SequenceNode {
			return nil, l.fail(n, path, "%s expects a sequence", e)
		}
		out := make(ir.List, 0, len(n.Content))
		for i, item := range n.Content {
			v, err := l.load(*e.Elem, item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case ExprOption:
		if isNull(n) {
			return ir.Null{}, nil
		}
		return l.load(*e.Elem, n, path)
	case ExprNamed:
		return l.loadNamed(l.schema.byName[e.Name], n, path)
	default:
		return nil, l.fail(n, path, "cannot load %s", e)
	}
}

// loadRef maps anchors to cells. The cell is registered before its payload
// is loaded so that aliases inside the payload find it.
func (l *loader) loadRef(e TypeExpr, n *yaml.Node, path string) (ir.Value, error) {
	if isNull(n) {
		return ir.Null{}, nil
	}
	target := n
	if n.Kind == yaml.AliasNode {
		target = n.Alias
	}
	if prev, ok := l.cells[target]; ok {
		if prev.typ != e.String() {
			return nil, l.fail(n, path, "anchor &%s is both %s and %s", target.Anchor, prev.typ, e)
		}
		return prev.cell, nil
	}

	cell := ir.NewCell(nil)
	if target.Anchor != "" {
		l.cells[target] = anchoredCell{cell: cell, typ: e.String()}
	}
	v, err := l.load(*e.Elem, target, path)
	if err != nil {
		return nil, err
	}
	cell.Value = v
	return cell, nil
}

func (l *loader) loadPrimitive(name string, n *yaml.Node, path string) (ir.Value, error) {
	if name == TypeUnit {
		if !isNull(n) {
			return nil, l.fail(n, path, "unit expects null")
		}
		return ir.Null{}, nil
	}
	if n.Kind != yaml.ScalarNode {
		return nil, l.fail(n, path, "%s expects a scalar", name)
	}

	tag := n.ShortTag()
	switch name {
	case TypeString:
		if tag != "!!str" {
			return nil, l.fail(n, path, "string expects a string, got %s", tag)
		}
		return ir.String(norm.NFC.String(n.Value)), nil
	case TypeInt, TypeInt32:
		if tag != "!!int" {
			return nil, l.fail(n, path, "%s expects an integer, got %s", name, tag)
		}
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, l.fail(n, path, "%v", err)
		}
		if name == TypeInt32 && int64(int32(i)) != i {
			return nil, l.fail(n, path, "%d overflows int32", i)
		}
		return ir.Int(i), nil
	case TypeBool:
		if tag != "!!bool" {
			return nil, l.fail(n, path, "bool expects a boolean, got %s", tag)
		}
		b, err := strconv.ParseBool(strings.ToLower(n.Value))
		if err != nil {
			return nil, l.fail(n, path, "%v", err)
		}
		return ir.Bool(b), nil
	case TypeBytes:
		if tag != "!!str" && tag != "!!binary" {
			return nil, l.fail(n, path, "bytes expects base64 text, got %s", tag)
		}
		p, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, l.fail(n, path, "bytes: %v", err)
		}
		return ir.Bytes(p), nil
	default:
		return nil, l.fail(n, path, "unknown primitive %q", name)
	}
}

func (l *loader) loadNamed(d *TypeDecl, n *yaml.Node, path string) (ir.Value, error) {
	switch d.Kind {
	case DeclAlias:
		return l.load(d.Target, n, path)
	case DeclSingleton:
		if !isNull(n) {
			return nil, l.fail(n, path, "%s expects null", d.Name)
		}
		return ir.Null{}, nil
	case DeclRecord:
		return l.loadRecord(d, n, path)
	case DeclUnion:
		return l.loadUnion(d, n, path)
	default:
		return nil, l.fail(n, path, "cannot load %s", d.Name)
	}
}

func (l *loader) loadRecord(d *TypeDecl, n *yaml.Node, path string) (ir.Value, error) {
	if n.Kind != yaml.MappingNode {
		return nil, l.fail(n, path, "%s expects a mapping", d.Name)
	}
	given := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if _, dup := given[k.Value]; dup {
			return nil, l.fail(k, path, "duplicate field %q", k.Value)
		}
		given[k.Value] = n.Content[i+1]
	}

	rec := make(ir.Record, len(d.Fields))
	for _, f := range d.Fields {
		fieldPath := path + "." + f.Name
		vn, ok := given[f.Name]
		delete(given, f.Name)
		if !ok {
			if !l.schema.nullable(f.Type, nil) {
				return nil, l.fail(n, fieldPath, "missing field")
			}
			rec[f.Name] = ir.Null{}
			continue
		}
		v, err := l.load(f.Type, vn, fieldPath)
		if err != nil {
			return nil, err
		}
		rec[f.Name] = v
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i]; given[k.Value] != nil {
			return nil, l.fail(k, path, "%s has no field %q", d.Name, k.Value)
		}
	}
	return rec, nil
}

func (l *loader) loadUnion(d *TypeDecl, n *yaml.Node, path string) (ir.Value, error) {
	find := func(name string) (Member, bool) {
		for _, c := range d.Cases {
			if c.Name == name {
				return c, true
			}
		}
		return Member{}, false
	}

	switch {
	case n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str":
		c, ok := find(n.Value)
		if !ok {
			return nil, l.fail(n, path, "%s has no case %q", d.Name, n.Value)
		}
		if !l.schema.nullable(c.Type, nil) {
			return nil, l.fail(n, path, "case %q needs a payload", c.Name)
		}
		return ir.Variant{Case: c.Name, Value: ir.Null{}}, nil
	case n.Kind == yaml.MappingNode && len(n.Content) == 2:
		c, ok := find(n.Content[0].Value)
		if !ok {
			return nil, l.fail(n.Content[0], path, "%s has no case %q", d.Name, n.Content[0].Value)
		}
		v, err := l.load(c.Type, n.Content[1], path+"."+c.Name)
		if err != nil {
			return nil, err
		}
		return ir.Variant{Case: c.Name, Value: v}, nil
	default:
		return nil, l.fail(n, path, "%s expects a case name or a single-entry mapping", d.Name)
	}
}

// DumpYAML renders v as a YAML node in the shape LoadValue reads. Record
// keys are sorted; a cell's payload carries an anchor the first time the
// cell is reached and later references are aliases.
func DumpYAML(v ir.Value) *yaml.Node {
	d := &dumper{anchors: make(map[*ir.Cell]*yaml.Node)}
	return d.dump(v)
}

type dumper struct {
	anchors map[*ir.Cell]*yaml.Node
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func (d *dumper) dump(v ir.Value) *yaml.Node {
	switch val := v.(type) {
	case nil, ir.Null:
		return scalarNode("!!null", "null")
	case ir.String:
		return scalarNode("!!str", string(val))
	case ir.Int:
		return scalarNode("!!int", strconv.FormatInt(int64(val), 10))
	case ir.Bool:
		return scalarNode("!!bool", strconv.FormatBool(bool(val)))
	case ir.Bytes:
		return scalarNode("!!binary", base64.StdEncoding.EncodeToString(val))
	case ir.List:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, elem := range val {
			n.Content = append(n.Content, d.dump(elem))
		}
		return n
	case ir.Record:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range val.SortedKeys() {
			n.Content = append(n.Content, scalarNode("!!str", k), d.dump(val[k]))
		}
		return n
	case ir.Variant:
		if _, null := val.Value.(ir.Null); null {
			return scalarNode("!!str", val.Case)
		}
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
			scalarNode("!!str", val.Case), d.dump(val.Value),
		}}
	case *ir.Cell:
		if val == nil {
			return scalarNode("!!null", "null")
		}
		if anchor, ok := d.anchors[val]; ok {
			return &yaml.Node{Kind: yaml.AliasNode, Value: anchor.Anchor, Alias: anchor}
		}
		n := &yaml.Node{}
		d.anchors[val] = n
		name := "c" + strconv.Itoa(len(d.anchors)-1)
		n.Anchor = name
		*n = *d.dump(val.Value)
		n.Anchor = name
		return n
	default:
		return scalarNode("!!null", "null")
	}
}
