// Package traits implements the value-traits protocol: for every value
// type T, one Traits[T] bundles a total order, a structural hash, a binary
// codec, exact size measurement, structural cloning, an analogy check and
// a debug rendering.
//
// Every operation runs inside a traversal context. A context holds
// per-call scratch state keyed by StateID and a FIFO queue of deferred
// work. Composite traits recurse depth-first; shared containers (see
// NewSharedRef and Box) push their payloads onto the queue instead, which
// bounds recursion by the nesting of traits rather than of data and lets
// cyclic graphs be encoded, decoded and cloned.
//
// The encoding carries no top-level type tag. The reader must already know
// which traits wrote the bytes.
package traits
