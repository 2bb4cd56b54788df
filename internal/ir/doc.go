// Package ir provides the dynamic value model for shapes declared in a
// schema rather than as Go types.
//
// Values are a sealed family: Null, String, Int, Bool, Bytes, List, Record,
// Variant and *Cell. A *Cell is the only value with identity; two cells are
// the same reference only if they are the same pointer, so cell graphs may
// share and even contain themselves.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64
//   - Strings are NFC-normalised at every export boundary
//   - Exports (canonical JSON, CBOR) number cells in order of first
//     appearance, so equal graphs export to equal bytes
//
// ir imports nothing internal.
package ir
