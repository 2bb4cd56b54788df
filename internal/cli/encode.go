package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/traitsmith/internal/blobstore"
	"github.com/roach88/traitsmith/internal/traits"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	valueOptions
	Out         string // write the encoding to this file
	Archive     bool   // store the encoding in the blob store
	Store       string // blob store path
	Hash        hashFlag
	Compression blobstore.Compression
}

// EncodeResult describes an encoded value.
type EncodeResult struct {
	Type      string `json:"type"`
	Size      int    `json:"size"`
	Measured  int64  `json:"measured"`
	Algorithm string `json:"algorithm"`
	Hash      string `json:"hash"`
	Encoding  string `json:"encoding"`
	Out       string `json:"out,omitempty"`
	Digest    string `json:"digest,omitempty"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{
		RootOptions: rootOpts,
		Hash:        hashFlag{alg: traits.HashBasic},
		Compression: blobstore.CompressionZstd,
	}

	cmd := &cobra.Command{
		Use:   "encode --type <T> <value.yaml>",
		Short: "Encode a YAML value",
		Long: `Load a YAML value of a schema type and encode it.

Prints the encoding in hex with its size, the measured size and the
structural hash. YAML anchors and aliases under ref<...> types become
shared references.

Examples:
  traitsmith encode --schema shapes.cue --type Drawing drawing.yaml
  traitsmith encode -s shapes.cue -t 'ref<Node>' --out loop.bin loop.yaml
  traitsmith encode -s shapes.cue -t Point --archive --store blobs.db p.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args[0], cmd)
		},
	}

	opts.valueOptions.register(cmd)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the encoding to a file")
	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "store the encoding in the blob store")
	cmd.Flags().StringVar(&opts.Store, "store", "", "blob store path (default from configuration)")
	cmd.Flags().Var(&opts.Hash, "hash", "hash algorithm (basic|sha256|blake3)")
	cmd.Flags().Var(&opts.Compression, "compression", "blob compression (none|lz4|zstd)")

	return cmd
}

func runEncode(opts *EncodeOptions, path string, cmd *cobra.Command) error {
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

	data, err := traits.Marshal(b.traits, v)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeValue, "failed to encode", err)
	}
	measured, err := traits.Measure(b.traits, v)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeValue, "failed to measure", err)
	}
	alg, err := opts.hashAlgorithm(cmd, &opts.Hash)
	if err != nil {
		return err
	}
	sum, err := traits.HashWith(alg.New(), b.traits, v)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeValue, "failed to hash", err)
	}

	result := EncodeResult{
		Type:      b.expr.String(),
		Size:      len(data),
		Measured:  measured,
		Algorithm: string(alg),
		Hash:      hex.EncodeToString(sum),
		Encoding:  hex.EncodeToString(data),
	}

	if opts.Out != "" {
		if err := os.WriteFile(opts.Out, data, 0o644); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write encoding", err)
		}
		result.Out = opts.Out
	}

	if opts.Archive {
		var compression *blobstore.Compression
		if cmd.Flags().Changed("compression") {
			compression = &opts.Compression
		}
		blobs, err := opts.openBlobs(cmd, f, opts.Store, compression)
		if err != nil {
			return err
		}
		defer blobs.Close()
		result.Digest, err = blobs.Put(context.Background(), result.Type, data)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to archive encoding", err)
		}
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	w := f.Writer
	fmt.Fprintf(w, "type:     %s\n", result.Type)
	fmt.Fprintf(w, "size:     %d bytes (measured %d)\n", result.Size, result.Measured)
	fmt.Fprintf(w, "hash:     %s %s\n", result.Algorithm, result.Hash)
	fmt.Fprintf(w, "encoding: %s\n", result.Encoding)
	if result.Out != "" {
		fmt.Fprintf(w, "written:  %s\n", result.Out)
	}
	if result.Digest != "" {
		fmt.Fprintf(w, "digest:   %s\n", result.Digest)
	}
	return nil
}

// hashAlgorithm returns the flag's algorithm when given, else the
// configured one.
func (o *RootOptions) hashAlgorithm(cmd *cobra.Command, flag *hashFlag) (traits.HashAlgorithm, error) {
	if cmd.Flags().Changed("hash") {
		return flag.alg, nil
	}
	cfg, err := o.Settings()
	if err != nil {
		return "", err
	}
	return cfg.Hash, nil
}
