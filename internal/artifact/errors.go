package artifact

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports a malformed Key. It is returned immediately
// and never cached.
type ConfigurationError struct {
	Kind    Kind
	Type    TypeRef
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Type.IsZero() {
		return fmt.Sprintf("configuration error: %s key: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("configuration error: %s(%s): %s", e.Kind, e.Type, e.Message)
}

// UnresolvableKey is one key no rule could claim. Candidates holds the
// catalog indices of competing rules when more than one applied under the
// strict strategy; it is empty when no rule applied.
type UnresolvableKey struct {
	Key        Key
	Candidates []int
}

// UnresolvableKeysError reports keys that could not be assigned a rule.
type UnresolvableKeysError struct {
	Keys []UnresolvableKey
}

func (e *UnresolvableKeysError) Error() string {
	parts := make([]string, len(e.Keys))
	for i, u := range e.Keys {
		if len(u.Candidates) == 0 {
			parts[i] = u.Key.String() + " (no applicable rule)"
			continue
		}
		parts[i] = fmt.Sprintf("%s (ambiguous rules %v)", u.Key, u.Candidates)
	}
	return "unresolvable keys: " + strings.Join(parts, ", ")
}

// NoProgressError means a commit sweep built nothing although every cyclic
// key had a placeholder. Reaching it is an engine bug.
type NoProgressError struct {
	Remaining []Key
}

func (e *NoProgressError) Error() string {
	names := make([]string, len(e.Remaining))
	for i, k := range e.Remaining {
		names[i] = k.String()
	}
	return "no progress building " + strings.Join(names, ", ")
}

// CycleError reports a key that sits on a construction cycle but whose
// rule cannot supply a placeholder.
type CycleError struct {
	Key  Key
	Rule string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s is part of a construction cycle but rule %s cannot supply a placeholder", e.Key, e.Rule)
}

// BuildError wraps an error returned by a rule's Build.
type BuildError struct {
	Key  Key
	Rule string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s with %s: %v", e.Key, e.Rule, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// PlanFailure is the failure of one candidate plan.
type PlanFailure struct {
	Plan int
	Err  error
}

// AggregateBuildError is returned when every backtracking plan failed to
// commit.
type AggregateBuildError struct {
	Target   []Key
	Failures []PlanFailure
}

func (e *AggregateBuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all %d plan(s) failed for %v", len(e.Failures), e.Target)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; plan %d: %v", f.Plan, f.Err)
	}
	return b.String()
}

// Unwrap exposes every per-plan cause to errors.Is and errors.As.
func (e *AggregateBuildError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// IsUnresolvable reports whether err is or wraps an UnresolvableKeysError.
func IsUnresolvable(err error) bool {
	var ue *UnresolvableKeysError
	return errors.As(err, &ue)
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsNoProgress reports whether err is or wraps a NoProgressError.
func IsNoProgress(err error) bool {
	var ne *NoProgressError
	return errors.As(err, &ne)
}
