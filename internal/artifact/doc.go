// Package artifact is the demand-driven build engine behind traitsmith.
//
// A Store maps Keys to built artifacts. When a key is missing, the store
// plans a construction order over its rule catalog, breaks construction
// cycles with placeholders, runs the chosen rules and memoizes the result.
// Failures are memoized too: a key that failed once replays the same error
// without invoking any rule again.
//
// # Planning
//
// Two strategies are available:
//
//   - StrategyBacktracking (default): every applicable rule for a key forks
//     a candidate plan. Plans are committed in fork order and the first one
//     that commits wins. If all fail, the caller gets an AggregateBuildError
//     with every plan's cause.
//   - StrategyStrict: each key must have exactly one applicable rule.
//     Anything else is reported as an UnresolvableKeysError.
//
// # Cycles
//
// Commit computes the transitive prerequisite closure of every planned key
// by repeated set union. A key whose closure contains itself gets a
// placeholder from the store's Fixups before anything is built. Dependents
// receive the placeholder; once the real artifact exists the placeholder is
// resolved exactly once.
//
// The core never inspects type metadata. Rules decide applicability from
// the Key alone, and TypeRef is only a name.
package artifact
