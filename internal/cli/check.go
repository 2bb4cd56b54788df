package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/traitsmith/internal/schema"
)

// TypeStatus reports whether one declared type builds.
type TypeStatus struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CheckResult holds the outcome of checking a schema.
type CheckResult struct {
	Schema    string       `json:"schema"`
	Types     []TypeStatus `json:"types"`
	Artifacts int          `json:"artifacts"`
	Failed    int          `json:"failed"`
}

// schemaErrorDetails is the position of a schema compile error.
type schemaErrorDetails struct {
	Field string `json:"field,omitempty"`
	File  string `json:"file,omitempty"`
	Line  int    `json:"line,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [schema.cue]",
		Short: "Compile a schema and build the traits of every type",
		Long: `Compile a CUE schema and resolve the traits of every declared type.

Each type is reported with its status. The schema defaults to the one
named in the configuration file.

Exit codes:
  0 - Every type builds
  1 - One or more types fail to build
  2 - Command error (missing file, schema does not compile)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCheck(rootOpts, path, cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	sess, err := opts.openSchema(cmd, f, path)
	if err != nil {
		return err
	}

	result := CheckResult{Schema: path}
	if result.Schema == "" {
		cfg, _ := opts.Settings()
		result.Schema = cfg.Schema
	}
	for _, d := range sess.schema.Types() {
		status := TypeStatus{Name: d.Name, Kind: d.Kind.String(), OK: true}
		if _, err := sess.schema.Traits(sess.store, d.Name); err != nil {
			status.OK = false
			status.Error = err.Error()
			result.Failed++
		}
		result.Types = append(result.Types, status)
	}
	result.Artifacts = sess.store.Len()

	if opts.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		for _, s := range result.Types {
			if s.OK {
				f.Passed("%s (%s)", s.Name, s.Kind)
			} else {
				f.Failed("%s (%s): %s", s.Name, s.Kind, s.Error)
			}
		}
		fmt.Fprintf(f.Writer, "\n%d type(s), %d failed, %d artifact(s) built\n",
			len(result.Types), result.Failed, result.Artifacts)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d type(s) failed", result.Failed))
	}
	return nil
}

// detailsOf locates a compile error for JSON output.
func detailsOf(ce *schema.CompileError) schemaErrorDetails {
	d := schemaErrorDetails{Field: ce.Field}
	if ce.Pos.IsValid() {
		d.File = ce.Pos.Filename()
		d.Line = ce.Pos.Line()
	}
	return d
}
