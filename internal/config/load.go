package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var cueSchema string

// LoadError is a failure to read or decode a configuration file.
type LoadError struct {
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
	Line    int       // YAML line if available
	Err     error
}

// Error implements error.
func (e *LoadError) Error() string {
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads the configuration at path, applies defaults and validates it.
// Files ending in .cue are evaluated against the embedded #Config schema;
// anything else is decoded as YAML, rejecting unknown keys.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read configuration file", Err: err}
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		cfg, err = ParseCUE(path, data)
	default:
		cfg, err = ParseYAML(path, data)
	}
	if err != nil {
		return nil, err
	}

	cfg.Dir = filepath.Dir(path)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseYAML decodes a YAML document without applying defaults. An empty
// document yields an empty configuration.
func ParseYAML(path string, data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, yamlError(path, err)
	}
	return cfg, nil
}

// yamlError keeps the first line number yaml.v3 reports.
func yamlError(path string, err error) error {
	le := &LoadError{Path: path, Message: err.Error(), Err: err}
	var terr *yaml.TypeError
	if errors.As(err, &terr) && len(terr.Errors) > 0 {
		le.Message = terr.Errors[0]
		var line int
		if _, serr := fmt.Sscanf(terr.Errors[0], "line %d:", &line); serr == nil {
			le.Line = line
			le.Message = strings.TrimSpace(strings.TrimPrefix(terr.Errors[0], fmt.Sprintf("line %d:", line)))
		}
	}
	return le
}

// ParseCUE evaluates a CUE document, unifies it with #Config, requires it
// to be concrete and decodes it without applying defaults.
func ParseCUE(path string, data []byte) (*Config, error) {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(cueSchema, cue.Filename("schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(path, err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(path, err)
	}

	cfg := &Config{}
	if err := unified.Decode(cfg); err != nil {
		return nil, formatCUEError(path, err)
	}
	return cfg, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(path string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Path: path, Message: err.Error(), Err: err}
	}

	// Report the first error, positioned in the user's file when possible
	first := errs[0]
	le := &LoadError{Path: path, Message: first.Error(), Err: err}
	for _, pos := range cueerrors.Positions(first) {
		if !le.Pos.IsValid() || pos.Filename() == path {
			le.Pos = pos
		}
		if pos.Filename() == path {
			break
		}
	}
	return le
}
