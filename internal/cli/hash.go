package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/traitsmith/internal/traits"
)

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	valueOptions
	Hash hashFlag
}

// HashResult is a structural hash of a value.
type HashResult struct {
	Type      string `json:"type"`
	Algorithm string `json:"algorithm"`
	Hash      string `json:"hash"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts, Hash: hashFlag{alg: traits.HashBasic}}

	cmd := &cobra.Command{
		Use:   "hash --type <T> <value.yaml>",
		Short: "Print the structural hash of a YAML value",
		Long: `Print the structural hash of a YAML value.

Values that compare equal hash equally. Shared references hash by
identity, so the hash of a value holding refs changes from run to run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, args[0], cmd)
		},
	}

	opts.valueOptions.register(cmd)
	cmd.Flags().Var(&opts.Hash, "hash", "hash algorithm (basic|sha256|blake3)")

	return cmd
}

func runHash(opts *HashOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	sess, err := opts.openSchema(cmd, f, opts.Schema)
	if err != nil {
		return err
	}
	b, err := sess.bind(f, opts.Type)
	if err != nil {
		return err
	}
	v, err := b.readValue(f, path)
	if err != nil {
		return err
	}
	alg, err := opts.hashAlgorithm(cmd, &opts.Hash)
	if err != nil {
		return err
	}
	sum, err := traits.HashWith(alg.New(), b.traits, v)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeValue, "failed to hash", err)
	}

	result := HashResult{Type: b.expr.String(), Algorithm: string(alg), Hash: hex.EncodeToString(sum)}
	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "%s %s\n", result.Algorithm, result.Hash)
	return nil
}
