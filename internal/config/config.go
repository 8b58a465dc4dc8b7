// Package config loads integrate settings from file, environment and
// defaults.
//
// Precedence, highest first: command-line flag, INTEGRATE_* environment
// variable, config file, built-in default. Config files are YAML, decoded
// strictly (unknown keys are errors) and validated against an embedded CUE
// schema before being merged into viper.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Quarlos/integrationMTS/internal/convergence"
	"github.com/Quarlos/integrationMTS/internal/integrand"
	"github.com/Quarlos/integrationMTS/internal/quadrature"
)

//go:embed schema.cue
var schemaSrc string

// EnvPrefix prefixes environment overrides, e.g. INTEGRATE_MAX_DOUBLINGS.
const EnvPrefix = "INTEGRATE"

// Setting keys, shared by viper, the config file and flag bindings.
const (
	KeyIntegrand    = "integrand"
	KeyMaxDoublings = "max_doublings"
	KeyRules        = "rules"
	KeyParallel     = "parallel"
	KeyDB           = "db"
	KeyLogLevel     = "log_level"
	KeyFormat       = "format"
)

// Config mirrors the config file. Pointer fields distinguish "unset" from
// an explicit zero value.
type Config struct {
	Integrand    string   `yaml:"integrand,omitempty" json:"integrand,omitempty"`
	MaxDoublings *int     `yaml:"max_doublings,omitempty" json:"max_doublings,omitempty"`
	Rules        []string `yaml:"rules,omitempty" json:"rules,omitempty"`
	Parallel     *bool    `yaml:"parallel,omitempty" json:"parallel,omitempty"`
	DB           string   `yaml:"db,omitempty" json:"db,omitempty"`
	LogLevel     string   `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	Format       string   `yaml:"format,omitempty" json:"format,omitempty"`
}

// ValidationError reports a config file that does not satisfy the schema.
type ValidationError struct {
	Path    string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid config: %s", e.Details)
	}
	return fmt.Sprintf("invalid config %s: %s", e.Path, e.Details)
}

// Load reads, strictly decodes and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Decode(data)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// Decode parses YAML config data and validates it. Empty input yields an
// empty Config.
func Decode(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown keys (catches typos)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against the embedded CUE schema.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	val := ctx.Encode(cfg)
	if err := val.Err(); err != nil {
		return &ValidationError{Details: cueerrors.Details(err, nil)}
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: strings.TrimSpace(cueerrors.Details(err, nil))}
	}
	return nil
}

// Map returns the keys set in cfg, for merging into viper.
func (c *Config) Map() map[string]any {
	m := make(map[string]any)
	if c.Integrand != "" {
		m[KeyIntegrand] = c.Integrand
	}
	if c.MaxDoublings != nil {
		m[KeyMaxDoublings] = *c.MaxDoublings
	}
	if len(c.Rules) > 0 {
		m[KeyRules] = c.Rules
	}
	if c.Parallel != nil {
		m[KeyParallel] = *c.Parallel
	}
	if c.DB != "" {
		m[KeyDB] = c.DB
	}
	if c.LogLevel != "" {
		m[KeyLogLevel] = c.LogLevel
	}
	if c.Format != "" {
		m[KeyFormat] = c.Format
	}
	return m
}

// NewViper returns a viper instance with built-in defaults and
// INTEGRATE_* environment overrides.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyIntegrand, integrand.DefaultName)
	v.SetDefault(KeyMaxDoublings, convergence.DefaultMaxDoublings)
	v.SetDefault(KeyRules, quadrature.Names())
	v.SetDefault(KeyParallel, false)
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyFormat, "text")
	return v
}

// Merge loads the config file at path (if non-empty) into v.
func Merge(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(cfg.Map()); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}
	return nil
}
