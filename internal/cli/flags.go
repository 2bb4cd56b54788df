package cli

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/roach88/traitsmith/internal/traits"
)

// hashFlag is a --hash value restricted to the supported algorithms.
type hashFlag struct {
	alg traits.HashAlgorithm
}

var _ pflag.Value = (*hashFlag)(nil)

func (f *hashFlag) String() string { return string(f.alg) }

func (f *hashFlag) Set(s string) error {
	alg, err := traits.ParseHashAlgorithm(s)
	if err != nil {
		return err
	}
	f.alg = alg
	return nil
}

func (f *hashFlag) Type() string { return "algorithm" }

// asFlag selects the rendering of a decoded value.
type asFlag string

const (
	asDebug asFlag = "debug"
	asJSON  asFlag = "json"
	asCBOR  asFlag = "cbor"
	asYAML  asFlag = "yaml"
)

var validAs = []asFlag{asDebug, asJSON, asCBOR, asYAML}

var _ pflag.Value = (*asFlag)(nil)

func (f *asFlag) String() string { return string(*f) }

func (f *asFlag) Set(s string) error {
	for _, v := range validAs {
		if string(v) == s {
			*f = v
			return nil
		}
	}
	return fmt.Errorf("unknown rendering %q: must be one of %v", s, validAs)
}

func (f *asFlag) Type() string { return "rendering" }
