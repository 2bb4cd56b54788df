package harness

import "fmt"

// CaseResult records what a case produced.
type CaseResult struct {
	Name string
	Type string

	// Failed is set when loading or encoding the value failed; Failure
	// holds the message.
	Failed  bool
	Failure string

	Debug    string
	Encoding []byte
	Digest   string

	// Hash is the basic structural hash, only set when the value holds no
	// shared references.
	Hash    uint64
	HasHash bool
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every case passed all of its checks.
	Pass bool

	Cases []CaseResult

	// Errors contains validation error messages, prefixed by case name.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addCaseError reports a failed check of one case.
func (r *Result) addCaseError(name, format string, args ...any) {
	r.AddError(fmt.Sprintf("case %s: %s", name, fmt.Sprintf(format, args...)))
}
