package harness

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/traitsmith/internal/ir"
)

// Snapshot renders a result as canonical JSON: per case its name, type and
// either the failure flag or the debug string, encoded size and hex
// encoding. Messages and hashes are left out so snapshots survive wording
// and hash algorithm changes.
func Snapshot(name string, result *Result) ([]byte, error) {
	cases := make(ir.List, len(result.Cases))
	for i, c := range result.Cases {
		rec := ir.R("name", ir.String(c.Name), "type", ir.String(c.Type))
		if c.Failed {
			rec["fails"] = ir.Bool(true)
		} else {
			rec["debug"] = ir.String(c.Debug)
			rec["size"] = ir.Int(len(c.Encoding))
			rec["encoding"] = ir.String(hex.EncodeToString(c.Encoding))
		}
		cases[i] = rec
	}
	return ir.MarshalCanonical(ir.R(
		"scenario", ir.String(name),
		"pass", ir.Bool(result.Pass),
		"cases", cases,
	))
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)

	return nil
}
