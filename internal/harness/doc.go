// Package harness runs conformance scenarios against schema-derived traits.
//
// A scenario names a CUE schema and lists typed values, each written in
// YAML the way schema.LoadValue reads them:
//
//	name: shapes
//	description: "Points and cyclic nodes survive the wire"
//	schema: shapes.cue
//	cases:
//	  - name: origin
//	    type: Point
//	    value: {x: 0, y: 0}
//	    expect:
//	      debug: "(rec Point, x = 0, y = 0)"
//	      size: 8
//	  - name: overflow
//	    type: Point
//	    value: {x: 2147483648, y: 0}
//	    expect:
//	      fails: true
//
// # Checks
//
// Every case that encodes is checked for:
//
//   - round trip: the decoded value is Equal to the original, or Analogous
//     when the value holds shared references
//   - measurement: Measure agrees with the encoded length
//   - cloning: the clone is Analogous to the original
//   - hash stability: the decoded value hashes like the original when it
//     holds no shared references
//   - archiving: the encoding reads back unchanged from a blob store
//
// plus whatever the expect clause asks for. A case expecting failure
// passes only when loading or encoding the value fails.
//
// # Deterministic Testing
//
// Each run uses a fresh artifact store and an in-memory blob store stamped
// by testutil.DeterministicClock, so snapshots are reproducible.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/shapes.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
