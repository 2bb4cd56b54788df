package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/traitsmith/internal/blobstore"
	"github.com/roach88/traitsmith/internal/ir"
	"github.com/roach88/traitsmith/internal/schema"
	"github.com/roach88/traitsmith/internal/traits"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	valueOptions
	Digest string // read the encoding from the blob store
	Store  string // blob store path
	As     asFlag
}

// DecodeResult is a decoded value in the requested rendering.
type DecodeResult struct {
	Type   string `json:"type"`
	As     string `json:"as"`
	Size   int    `json:"size"`
	Output string `json:"output"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts, As: asDebug}

	cmd := &cobra.Command{
		Use:   "decode --type <T> (<file> | --digest <D>)",
		Short: "Decode an encoding and print the value",
		Long: `Decode an encoding read from a file or from the blob store.

The value is printed as its debug string by default. --as selects
canonical JSON, hex CBOR or YAML instead. When decoding by digest,
--type defaults to the type the blob was stored under.

Examples:
  traitsmith decode -s shapes.cue -t Drawing drawing.bin
  traitsmith decode -s shapes.cue --digest 3f2a... --as yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args, cmd)
		},
	}

	opts.valueOptions.register(cmd)
	cmd.Flags().StringVar(&opts.Digest, "digest", "", "decode the blob with this digest")
	cmd.Flags().StringVar(&opts.Store, "store", "", "blob store path (default from configuration)")
	cmd.Flags().Var(&opts.As, "as", "rendering (debug|json|cbor|yaml)")

	return cmd
}

func runDecode(opts *DecodeOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if (len(args) == 1) == (opts.Digest != "") {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "pass either a file or --digest", nil)
	}

	sess, err := opts.openSchema(cmd, f, opts.Schema)
	if err != nil {
		return err
	}

	var (
		data     []byte
		typeExpr = opts.Type
		stored   string
	)
	if opts.Digest != "" {
		blob, err := opts.readBlob(cmd, f)
		if err != nil {
			return err
		}
		data, stored = blob.Data, blob.TypeExpr
		if typeExpr == "" {
			typeExpr = stored
		}
	} else {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNotFound, "failed to read encoding", err)
		}
	}

	b, err := sess.bind(f, typeExpr)
	if err != nil {
		return err
	}
	if stored != "" && stored != b.expr.String() {
		return f.Fail(ExitCommandError, ErrCodeType,
			fmt.Sprintf("blob holds %s, not %s", stored, b.expr), nil)
	}

	v, err := traits.Unmarshal(b.traits, data)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDecode, "failed to decode", err)
	}
	out, err := render(b.traits, v, opts.As)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to render value", err)
	}

	if opts.Format == "json" {
		return f.Success(DecodeResult{Type: b.expr.String(), As: string(opts.As), Size: len(data), Output: out})
	}
	fmt.Fprintln(f.Writer, out)
	return nil
}

func (opts *DecodeOptions) readBlob(cmd *cobra.Command, f *OutputFormatter) (blobstore.Blob, error) {
	blobs, err := opts.openBlobs(cmd, f, opts.Store, nil)
	if err != nil {
		return blobstore.Blob{}, err
	}
	defer blobs.Close()

	blob, err := blobs.Get(context.Background(), opts.Digest)
	switch {
	case blobstore.IsNotFound(err):
		return blobstore.Blob{}, f.Fail(ExitCommandError, ErrCodeNotFound, "no such blob", err)
	case err != nil:
		return blobstore.Blob{}, f.Fail(ExitCommandError, ErrCodeStore, "failed to read blob", err)
	}
	f.VerboseLog("Blob %s: %s, %d bytes stored as %s", blob.Digest, blob.TypeExpr, blob.StoredSize, blob.Compression)
	return blob, nil
}

// render formats a decoded value.
func render(tr traits.Traits[ir.Value], v ir.Value, as asFlag) (string, error) {
	switch as {
	case asJSON:
		out, err := ir.MarshalCanonical(v)
		return string(out), err
	case asCBOR:
		out, err := ir.MarshalCBOR(v)
		return hex.EncodeToString(out), err
	case asYAML:
		out, err := yaml.Marshal(schema.DumpYAML(v))
		return strings.TrimSuffix(string(out), "\n"), err
	default:
		return traits.DebugString(tr, v), nil
	}
}
