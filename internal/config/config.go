// Package config loads the traitsmith CLI configuration file.
//
// A configuration file is YAML with four optional keys:
//
//	schema: shapes.cue        # CUE schema used when --schema is absent
//	store: traitsmith.db      # blob store database
//	hash: blake3              # basic, sha256 or blake3
//	compression: zstd         # none, lz4 or zstd
//
// Relative paths are resolved against the directory holding the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/traitsmith/internal/blobstore"
	"github.com/roach88/traitsmith/internal/traits"
)

// DefaultPath is read when no --config flag is given, if it exists.
const DefaultPath = "traitsmith.yaml"

// Config holds resolved CLI settings.
type Config struct {
	Schema      string
	Store       string
	Hash        traits.HashAlgorithm
	Compression blobstore.Compression
}

// file mirrors the YAML layout. Enumerations stay strings so that errors
// can name the offending key.
type file struct {
	Schema      string `yaml:"schema"`
	Store       string `yaml:"store"`
	Hash        string `yaml:"hash"`
	Compression string `yaml:"compression"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Store:       "traitsmith.db",
		Hash:        traits.HashBasic,
		Compression: blobstore.CompressionZstd,
	}
}

// Load reads the configuration at path. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads DefaultPath from dir when it exists and returns
// Default otherwise.
func LoadDefault(dir string) (Config, error) {
	path := filepath.Join(dir, DefaultPath)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes configuration YAML, resolving relative paths against
// base.
func Parse(data []byte, base string) (Config, error) {
	var f file
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg := Default()
	if f.Schema != "" {
		cfg.Schema = resolve(base, f.Schema)
	}
	if f.Store != "" {
		cfg.Store = resolve(base, f.Store)
	}
	if f.Hash != "" {
		h, err := traits.ParseHashAlgorithm(f.Hash)
		if err != nil {
			return Config{}, fmt.Errorf("hash: %w", err)
		}
		cfg.Hash = h
	}
	if f.Compression != "" {
		c, err := blobstore.ParseCompression(f.Compression)
		if err != nil {
			return Config{}, fmt.Errorf("compression: %w", err)
		}
		cfg.Compression = c
	}
	return cfg, nil
}

func resolve(base, path string) string {
	if base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
