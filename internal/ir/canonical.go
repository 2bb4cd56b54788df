package ir

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Reserved member names used to export the shapes JSON has no word for.
const (
	KeyBytes = "$bytes"
	KeyCase  = "$case"
	KeyID    = "$id"
	KeyRef   = "$ref"
	KeyValue = "value"
)

// MarshalCanonical produces RFC 8785 canonical JSON for v.
//
// Key differences from standard json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Bytes export as {"$bytes": base64}, variants as {"$case": c, "value": v}
//  5. A cell exports as {"$id": n, "value": v} the first time it is reached
//     and as {"$ref": n} afterwards, so shared and cyclic graphs terminate
func MarshalCanonical(v Value) ([]byte, error) {
	m := &canonicalMarshaler{ids: make(map[*Cell]int)}
	if err := m.marshal(v); err != nil {
		return nil, err
	}
	return m.buf.Bytes(), nil
}

type canonicalMarshaler struct {
	buf bytes.Buffer
	ids map[*Cell]int
}

func (m *canonicalMarshaler) marshal(v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("missing value")
	case Null:
		m.buf.WriteString("null")
	case String:
		writeCanonicalString(&m.buf, string(val))
	case Int:
		m.buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		m.buf.WriteString(strconv.FormatBool(bool(val)))
	case Bytes:
		m.buf.WriteByte('{')
		writeCanonicalString(&m.buf, KeyBytes)
		m.buf.WriteByte(':')
		writeCanonicalString(&m.buf, base64.StdEncoding.EncodeToString(val))
		m.buf.WriteByte('}')
	case List:
		m.buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				m.buf.WriteByte(',')
			}
			if err := m.marshal(elem); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		m.buf.WriteByte(']')
	case Record:
		m.buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				m.buf.WriteByte(',')
			}
			writeCanonicalString(&m.buf, k)
			m.buf.WriteByte(':')
			if err := m.marshal(val[k]); err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
		}
		m.buf.WriteByte('}')
	case Variant:
		// "$case" < "value" in UTF-16 order.
		m.buf.WriteByte('{')
		writeCanonicalString(&m.buf, KeyCase)
		m.buf.WriteByte(':')
		writeCanonicalString(&m.buf, val.Case)
		m.buf.WriteByte(',')
		writeCanonicalString(&m.buf, KeyValue)
		m.buf.WriteByte(':')
		if err := m.marshal(val.Value); err != nil {
			return fmt.Errorf("case %q: %w", val.Case, err)
		}
		m.buf.WriteByte('}')
	case *Cell:
		return m.marshalCell(val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func (m *canonicalMarshaler) marshalCell(c *Cell) error {
	if c == nil {
		m.buf.WriteString("null")
		return nil
	}
	if id, ok := m.ids[c]; ok {
		fmt.Fprintf(&m.buf, `{"%s":%d}`, KeyRef, id)
		return nil
	}
	id := len(m.ids)
	m.ids[c] = id
	fmt.Fprintf(&m.buf, `{"%s":%d,"%s":`, KeyID, id, KeyValue)
	if err := m.marshal(c.Value); err != nil {
		return fmt.Errorf("ref #%d: %w", id, err)
	}
	m.buf.WriteByte('}')
	return nil
}

// writeCanonicalString writes s as an RFC 8785 string: NFC normalized,
// with only quote, backslash and control characters escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hex[r>>4])
			buf.WriteByte(hex[r&0xF])
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
