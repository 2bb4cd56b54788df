package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/traitsmith/internal/artifact"
	"github.com/roach88/traitsmith/internal/blobstore"
	"github.com/roach88/traitsmith/internal/ir"
	"github.com/roach88/traitsmith/internal/schema"
	"github.com/roach88/traitsmith/internal/testutil"
	"github.com/roach88/traitsmith/internal/traits"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	schema *schema.Schema
	store  *artifact.Store
	blobs  *blobstore.Store
	logger *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the logger handed to the artifact store. Runs are
// silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario and returns the result.
//
// The returned error covers problems that stop the whole scenario, such as
// a schema that does not compile. Failed checks land in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	s, err := schema.LoadFile(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	h := &Harness{
		schema: s,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.store = artifact.NewStore(nil,
		artifact.WithSupplier(s),
		artifact.WithLogger(h.logger))

	h.blobs, err = blobstore.Open(":memory:",
		blobstore.WithClock(testutil.NewDeterministicClock()),
		blobstore.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory blob store: %w", err)
	}
	defer h.blobs.Close()

	result := NewResult()
	for i := range scenario.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Cases = append(result.Cases, h.runCase(ctx, &scenario.Cases[i], result))
	}
	return result, nil
}

func (h *Harness) runCase(ctx context.Context, c *Case, result *Result) CaseResult {
	cr := CaseResult{Name: c.Name, Type: c.Type}
	expect := c.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}

	tr, err := h.schema.Traits(h.store, c.Type)
	if err != nil {
		result.addCaseError(c.Name, "no traits for %s: %v", c.Type, err)
		return cr
	}

	v, data, err := h.encode(c, tr)
	if err != nil {
		cr.Failed = true
		cr.Failure = err.Error()
		switch {
		case !expect.Fails:
			result.addCaseError(c.Name, "%v", err)
		case !strings.Contains(err.Error(), expect.Error):
			result.addCaseError(c.Name, "failure %q does not mention %q", err, expect.Error)
		}
		return cr
	}
	if expect.Fails {
		result.addCaseError(c.Name, "expected failure, encoded %d bytes", len(data))
	}

	cr.Encoding = data
	cr.Debug = traits.DebugString(tr, v)
	if expect.Debug != "" && cr.Debug != expect.Debug {
		result.addCaseError(c.Name, "debug string\n  got:  %s\n  want: %s", cr.Debug, expect.Debug)
	}
	if expect.Size != nil && int64(len(data)) != *expect.Size {
		result.addCaseError(c.Name, "encoded %d bytes, want %d", len(data), *expect.Size)
	}

	h.checkTraits(c.Name, tr, v, data, &cr, result)
	h.checkArchive(ctx, c, data, &cr, result)
	return cr
}

// encode loads and encodes the case value.
func (h *Harness) encode(c *Case, tr traits.Traits[ir.Value]) (ir.Value, []byte, error) {
	v, err := h.schema.LoadValue(c.Type, c.Value)
	if err != nil {
		return nil, nil, err
	}
	data, err := traits.Marshal(tr, v)
	if err != nil {
		return nil, nil, err
	}
	return v, data, nil
}

func (h *Harness) checkTraits(name string, tr traits.Traits[ir.Value], v ir.Value, data []byte, cr *CaseResult, result *Result) {
	shared := ir.HasCells(v)

	size, err := traits.Measure(tr, v)
	switch {
	case err != nil:
		result.addCaseError(name, "measure: %v", err)
	case size != int64(len(data)):
		result.addCaseError(name, "measured %d bytes, encoded %d", size, len(data))
	}

	out, err := traits.Unmarshal(tr, data)
	if err != nil {
		result.addCaseError(name, "decode: %v", err)
		return
	}
	if shared {
		if !traits.Analogous(tr, v, out) {
			result.addCaseError(name, "decoded value is not analogous to the original")
		}
	} else if !traits.Equal(tr, v, out) {
		result.addCaseError(name, "decoded value differs: %s", traits.DebugString(tr, out))
	}

	clone, err := traits.Clone(tr, v)
	if err != nil {
		result.addCaseError(name, "clone: %v", err)
	} else if !traits.Analogous(tr, v, clone) {
		result.addCaseError(name, "clone is not analogous to the original")
	}

	// Shared references hash their identity, which decoding replaces.
	if !shared {
		cr.Hash = traits.BasicHash(tr, v)
		cr.HasHash = true
		if got := traits.BasicHash(tr, out); got != cr.Hash {
			result.addCaseError(name, "hash changed across round trip: %016x != %016x", got, cr.Hash)
		}
	}
}

func (h *Harness) checkArchive(ctx context.Context, c *Case, data []byte, cr *CaseResult, result *Result) {
	digest, err := h.blobs.Put(ctx, c.Type, data)
	if err != nil {
		result.addCaseError(c.Name, "archive: %v", err)
		return
	}
	cr.Digest = digest
	blob, err := h.blobs.Get(ctx, digest)
	if err != nil {
		result.addCaseError(c.Name, "archive: %v", err)
		return
	}
	if !bytes.Equal(blob.Data, data) {
		result.addCaseError(c.Name, "archived encoding differs")
	}
}
