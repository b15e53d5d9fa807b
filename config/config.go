// Package config holds the YAML configuration of opticorr runs.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/opticorr/accelerator"
	"github.com/katalvlaran/opticorr/optics"
)

// ErrInvalidConfig is matched by every Validate failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Environment overrides.
const (
	EnvDB          = "OPTICORR_DB"
	EnvLogLevel    = "OPTICORR_LOG_LEVEL"
	EnvAccelerator = "OPTICORR_ACCEL"
)

// Config is the complete run configuration.
type Config struct {
	Accelerator AcceleratorConfig `yaml:"accelerator"`
	Correction  CorrectionConfig  `yaml:"correction"`
	Inputs      InputsConfig      `yaml:"inputs"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AcceleratorConfig selects and configures the accelerator variant.
type AcceleratorConfig struct {
	Name          string  `yaml:"name"`
	Beam          int     `yaml:"beam,omitempty"`
	Ring          int     `yaml:"ring,omitempty"`
	Energy        float64 `yaml:"energy,omitempty"`
	OpticsFile    string  `yaml:"optics_file,omitempty"`
	BeamDirection int     `yaml:"beam_direction,omitempty"`
	CatalogPath   string  `yaml:"catalog,omitempty"`
}

// CorrectionConfig holds the solver and iteration settings.
type CorrectionConfig struct {
	OpticsParams       []string  `yaml:"optics_params"`
	Weights            []float64 `yaml:"weights"`
	VariableCategories []string  `yaml:"variable_categories"`
	OptionalParams     []string  `yaml:"optional_params,omitempty"`
	SVDCut             float64   `yaml:"svd_cut"`
	Iterations         int       `yaml:"iterations"`
	UpdateResponse     bool      `yaml:"update_response"`
	DeltaK             float64   `yaml:"delta_k"`
	UseErrorbars       bool      `yaml:"use_errorbars"`
	Parallelism        int       `yaml:"parallelism"`
	// Span limits the correctors to those with an element in [from, to];
	// an omitted bound is open.
	Span SpanConfig `yaml:"span,omitempty"`
}

// SpanConfig bounds corrector positions, in metres along the sequence.
type SpanConfig struct {
	From *float64 `yaml:"from,omitempty"`
	To   *float64 `yaml:"to,omitempty"`
}

// InputsConfig points at the data files of a run.
type InputsConfig struct {
	Measurement string `yaml:"measurement"`
	Model       string `yaml:"model"`
	Response    string `yaml:"response"`
	// Sensitivity drives the built-in linear model engine; empty means Response.
	Sensitivity string  `yaml:"sensitivity,omitempty"`
	Curvature   float64 `yaml:"curvature,omitempty"`
}

// OutputConfig names the run archive and generated scripts.
type OutputConfig struct {
	DBPath     string `yaml:"db"`
	ScriptPath string `yaml:"script,omitempty"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Accelerator: AcceleratorConfig{Name: "lhc", Beam: 1},
		Correction: CorrectionConfig{
			OpticsParams:       []string{"PHASEX", "PHASEY", "BETX", "BETY", "NDX", "Q"},
			Weights:            []float64{1, 1, 1, 1, 1, 1},
			VariableCategories: []string{"MQY"},
			SVDCut:             0.01,
			Iterations:         4,
			DeltaK:             2e-5,
			Parallelism:        1,
		},
		Output:  OutputConfig{DBPath: "opticorr.db"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// presence records which list fields a file sets explicitly.
type presence struct {
	Correction struct {
		OpticsParams *[]string  `yaml:"optics_params"`
		Weights      *[]float64 `yaml:"weights"`
	} `yaml:"correction"`
}

// Load reads path over the defaults. A missing file yields the defaults.
// A file that sets optics_params without weights gets nil weights (1 each).
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		var set presence
		if err = yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		// Default weights are parallel to the default params only.
		if set.Correction.OpticsParams != nil && set.Correction.Weights == nil {
			cfg.Correction.Weights = nil
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvDB); v != "" {
		c.Output.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvAccelerator); v != "" {
		c.Accelerator.Name = v
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks ranges and names; it does not touch the filesystem.
func (c *Config) Validate() error {
	known := false
	for _, n := range accelerator.Names() {
		if strings.EqualFold(n, c.Accelerator.Name) {
			known = true
			break
		}
	}
	if !known {
		return invalid("accelerator %q (valid: %v)", c.Accelerator.Name, accelerator.Names())
	}

	cc := c.Correction
	if _, err := c.Kinds(); err != nil {
		return invalid("optics_params: %v", err)
	}
	if _, err := c.OptionalKinds(); err != nil {
		return invalid("optional_params: %v", err)
	}
	if len(cc.Weights) != 0 && len(cc.Weights) != len(cc.OpticsParams) {
		return invalid("%d weights for %d optics_params", len(cc.Weights), len(cc.OpticsParams))
	}
	for i, w := range cc.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return invalid("weight %d is %g", i, w)
		}
	}
	if len(cc.VariableCategories) == 0 {
		return invalid("no variable_categories")
	}
	if math.IsNaN(cc.SVDCut) || cc.SVDCut < 0 || cc.SVDCut >= 1 {
		return invalid("svd_cut %g outside [0, 1)", cc.SVDCut)
	}
	if cc.Iterations < 1 {
		return invalid("iterations %d < 1", cc.Iterations)
	}
	if cc.UpdateResponse && !(cc.DeltaK > 0) {
		return invalid("delta_k %g must be positive with update_response", cc.DeltaK)
	}
	if cc.Parallelism < 0 {
		return invalid("parallelism %d < 0", cc.Parallelism)
	}
	for _, b := range []*float64{cc.Span.From, cc.Span.To} {
		if b != nil && (math.IsNaN(*b) || math.IsInf(*b, 0)) {
			return invalid("span bound %g is not finite", *b)
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return invalid("logging format %q (valid: json, console)", c.Logging.Format)
	}

	return nil
}

// Kinds parses OpticsParams.
func (c *Config) Kinds() ([]optics.Kind, error) {
	if len(c.Correction.OpticsParams) == 0 {
		return nil, errors.New("empty")
	}
	return optics.ParseKinds(c.Correction.OpticsParams)
}

// OptionalKinds parses OptionalParams.
func (c *Config) OptionalKinds() ([]optics.Kind, error) {
	return optics.ParseKinds(c.Correction.OptionalParams)
}

// Span returns the corrector span; omitted bounds are open.
func (c *Config) Span() accelerator.Span {
	span := accelerator.Everywhere
	if c.Correction.Span.From != nil {
		span.From = *c.Correction.Span.From
	}
	if c.Correction.Span.To != nil {
		span.To = *c.Correction.Span.To
	}

	return span
}

// AcceleratorOptions maps the accelerator section onto accelerator.Options.
func (c *Config) AcceleratorOptions() accelerator.Options {
	a := c.Accelerator
	return accelerator.Options{
		Beam:          a.Beam,
		Ring:          a.Ring,
		Energy:        a.Energy,
		OpticsFile:    a.OpticsFile,
		BeamDirection: a.BeamDirection,
		CatalogPath:   a.CatalogPath,
	}
}
