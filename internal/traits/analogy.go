package traits

// AnalogyTracker checks that two values have the same structure while
// allowing the identities of shared containers to differ, as long as they
// correspond one to one.
type AnalogyTracker struct {
	traversal
	tripped bool
}

// NewAnalogyTracker returns a tracker that has not found a mismatch yet.
func NewAnalogyTracker() *AnalogyTracker {
	return &AnalogyTracker{}
}

// IsAnalogous reports whether no mismatch has been found.
func (t *AnalogyTracker) IsAnalogous() bool {
	return !t.tripped
}

// SetNotAnalogous records a mismatch. Every later check is skipped.
func (t *AnalogyTracker) SetNotAnalogous() {
	t.tripped = true
}

// RunQueue drains deferred checks until the queue is empty or a mismatch
// was found; in the latter case the rest of the queue is dropped.
func (t *AnalogyTracker) RunQueue() {
	for !t.tripped && t.err == nil {
		fn, ok := t.dequeue()
		if !ok {
			return
		}
		fn()
	}
	t.queue = nil
}

// RunCheck checks a and b with tr unless a mismatch was already found.
func RunCheck[T any](t *AnalogyTracker, tr Traits[T], a, b T) {
	if t.IsAnalogous() {
		tr.CheckAnalogous(t, a, b)
	}
}

// checkCompare trips t when tr orders a and b differently. Leaf traits use
// it: for values without embedded identity, analogy is equality.
func checkCompare[T any](t *AnalogyTracker, tr Traits[T], a, b T) {
	if t.IsAnalogous() && tr.Compare(a, b) != 0 {
		t.SetNotAnalogous()
	}
}
