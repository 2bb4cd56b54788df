package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/traitsmith/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Cases  int      `json:"cases"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml|dir>...",
		Short: "Run conformance scenarios",
		Long: `Run conformance scenarios against their schemas.

Every case is loaded, encoded, measured, decoded, cloned, hashed and
archived, and the results are checked against each other and the case's
expectations. When golden/<scenario>.golden exists next to a scenario
file, the snapshot must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  traitsmith test ./scenarios
  traitsmith test ./scenarios --filter "shape*"
  traitsmith test ./scenarios/shapes.yaml --update
  traitsmith test ./scenarios --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	var scenarioFiles []string
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", p))
		}
		files, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		scenarioFiles = append(scenarioFiles, files...)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return f.Success(result)
		}
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for _, file := range scenarioFiles {
		sr := runScenario(ctx, file, opts, cmd)
		if opts.Format != "json" {
			reportScenario(f, sr, opts.Update)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(f, result)
	}
	return outputTestText(f, result)
}

// findScenarioFiles returns root itself when it is a file, else every YAML
// file below it whose base name matches filter.
func findScenarioFiles(root string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// golden/ holds snapshots, not scenarios
			if path != root && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if path != root && ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario file.
func runScenario(ctx context.Context, file string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name
	sr.Cases = len(scenario.Cases)

	result, err := harness.Run(ctx, scenario, harness.WithLogger(opts.Logger(cmd.ErrOrStderr())))
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}

	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to snapshot result: %v", err)}
		return sr
	}

	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := writeGoldenFile(goldenPath, snapshot); err != nil {
			sr.Errors = []string{fmt.Sprintf("failed to update golden file: %v", err)}
			return sr
		}
	} else if golden, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(golden, snapshot) {
			result.AddError("snapshot does not match golden file (run with --update to regenerate)")
		}
	} else if !os.IsNotExist(err) {
		sr.Errors = []string{fmt.Sprintf("failed to read golden file: %v", err)}
		return sr
	}

	sr.Pass = result.Pass
	sr.Errors = result.Errors
	return sr
}

func reportScenario(f *OutputFormatter, sr ScenarioResult, updated bool) {
	if !sr.Pass {
		f.Failed("%s", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(f.Writer, "  %s\n", e)
		}
		return
	}
	if updated {
		f.Passed("%s (golden updated)", sr.Name)
		return
	}
	f.Passed("%s (%d cases)", sr.Name, sr.Cases)
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGoldenFile(path string, snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, snapshot, 0o644)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(f *OutputFormatter, result TestResult) error {
	if result.Failed == 0 {
		return f.Success(result)
	}
	response := CLIResponse{
		Status: "error",
		Data:   result,
		Error: &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		},
	}
	if err := f.encode(response); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
}

// outputTestText outputs the test summary as text.
func outputTestText(f *OutputFormatter, result TestResult) error {
	fmt.Fprintln(f.Writer)
	fmt.Fprintf(f.Writer, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	f.Passed("All scenarios passed")
	return nil
}
