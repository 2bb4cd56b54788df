package traits

// Cloner is the traversal context for structural copies. Shared containers
// are copied once per traversal and their payloads are filled from the
// queue, which keeps cyclic graphs cyclic in the copy.
type Cloner struct {
	traversal
}

// NewCloner returns a fresh clone context.
func NewCloner() *Cloner {
	return &Cloner{}
}
