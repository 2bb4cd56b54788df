package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/traitsmith/internal/artifact"
	"github.com/roach88/traitsmith/internal/blobstore"
	"github.com/roach88/traitsmith/internal/ir"
	"github.com/roach88/traitsmith/internal/schema"
	"github.com/roach88/traitsmith/internal/traits"
)

// valueOptions are the flags shared by commands that work on values of a
// schema type.
type valueOptions struct {
	Schema string
	Type   string
}

func (v *valueOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&v.Schema, "schema", "s", "", "CUE schema file (default from configuration)")
	cmd.Flags().StringVarP(&v.Type, "type", "t", "", "type expression, e.g. Point or list<ref<Node>>")
}

// session is a compiled schema with an artifact store over it.
type session struct {
	schema *schema.Schema
	store  *artifact.Store
}

// openSchema compiles the schema named by the flag or the configuration.
func (o *RootOptions) openSchema(cmd *cobra.Command, f *OutputFormatter, path string) (*session, error) {
	cfg, err := o.Settings()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = cfg.Schema
	}
	if path == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeSchema, "no schema: pass --schema or set schema in the configuration", nil)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, "schema file not found: "+path, nil)
	}

	f.VerboseLog("Compiling schema %s", path)
	s, err := schema.LoadFile(path)
	if err != nil {
		var ce *schema.CompileError
		if errors.As(err, &ce) {
			if outErr := f.Error(ErrCodeSchema, "failed to load schema: "+err.Error(), detailsOf(ce)); outErr != nil {
				return nil, outErr
			}
			e := WrapExitError(ExitCommandError, "failed to load schema", err)
			e.Reported = true
			return nil, e
		}
		return nil, f.Fail(ExitCommandError, ErrCodeSchema, "failed to load schema", err)
	}
	return &session{
		schema: s,
		store: artifact.NewStore(nil,
			artifact.WithSupplier(s),
			artifact.WithLogger(o.Logger(cmd.ErrOrStderr()))),
	}, nil
}

// bound is a session narrowed to one type expression.
type bound struct {
	*session
	expr   schema.TypeExpr
	traits traits.Traits[ir.Value]
}

// bind resolves the traits of typeExpr.
func (s *session) bind(f *OutputFormatter, typeExpr string) (*bound, error) {
	if typeExpr == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeType, "--type is required", nil)
	}
	expr, err := s.schema.Expr(typeExpr)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeType, "invalid type", err)
	}
	tr, err := artifact.Get[traits.Traits[ir.Value]](s.store, schema.TraitsKey(expr))
	if err != nil {
		return nil, f.Fail(ExitFailure, ErrCodeType, "no traits for "+expr.String(), err)
	}
	f.VerboseLog("Built traits for %s (%d artifacts)", expr, s.store.Len())
	return &bound{session: s, expr: expr, traits: tr}, nil
}

// readValue loads a YAML value of the bound type from path.
func (b *bound) readValue(f *OutputFormatter, path string) (ir.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, "failed to read value", err)
	}
	v, err := b.schema.ParseValue(b.expr.String(), data)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeValue, "failed to load value", err)
	}
	return v, nil
}

// openBlobs opens the blob store at path, falling back to the configured
// store. A nil compression keeps the configured one.
func (o *RootOptions) openBlobs(cmd *cobra.Command, f *OutputFormatter, path string, compression *blobstore.Compression) (*blobstore.Store, error) {
	cfg, err := o.Settings()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = cfg.Store
	}
	c := cfg.Compression
	if compression != nil {
		c = *compression
	}
	f.VerboseLog("Opening blob store %s", path)
	blobs, err := blobstore.Open(path,
		blobstore.WithCompression(c),
		blobstore.WithLogger(o.Logger(cmd.ErrOrStderr())))
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "failed to open blob store", err)
	}
	return blobs, nil
}
