package traits

import (
	"fmt"
	"strings"
)

// DebugStringBuilder accumulates a parenthesized rendering of a value.
type DebugStringBuilder struct {
	traversal
	sb strings.Builder
}

// NewDebugStringBuilder returns an empty builder.
func NewDebugStringBuilder() *DebugStringBuilder {
	return &DebugStringBuilder{}
}

// WriteString appends s verbatim.
func (b *DebugStringBuilder) WriteString(s string) {
	b.sb.WriteString(s)
}

// Printf appends a formatted string.
func (b *DebugStringBuilder) Printf(format string, args ...any) {
	fmt.Fprintf(&b.sb, format, args...)
}

// String returns everything appended so far.
func (b *DebugStringBuilder) String() string {
	return b.sb.String()
}

// writeList renders "(head a, b, c)", or "(head)" when n is zero.
func writeList(b *DebugStringBuilder, head string, n int, item func(i int)) {
	b.WriteString("(")
	b.WriteString(head)
	for i := 0; i < n; i++ {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		item(i)
	}
	b.WriteString(")")
}
