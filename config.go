package deepthink

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Validation bounds for run parameters.
const (
	MinQueryLen = 1
	MaxQueryLen = 10000
	MinPaths    = 1
	MaxPathsCap = 32
	MinTopK     = 1
	MaxTopK     = 10
)

// Config holds every pipeline tunable. Zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// Model is the backend model identifier passed through to the
	// gateway on every call.
	Model string `yaml:"model"`

	// NPaths is the first-round fan-out width.
	NPaths int `yaml:"n_paths"`

	// MaxPaths is the hard ceiling on total paths across both rounds.
	// Zero means 2*NPaths.
	MaxPaths int `yaml:"max_paths"`

	// TopK is how many top-ranked candidates the refiner receives.
	TopK int `yaml:"top_k"`

	// QualityThreshold is the mean first-round score below which the
	// budget manager requests a second round.
	QualityThreshold float64 `yaml:"quality_threshold"`

	// MaxConcurrency caps simultaneous in-flight thinker calls. Zero
	// means no ceiling beyond the round size.
	MaxConcurrency int `yaml:"max_concurrency"`

	// PerCallTimeout bounds every individual gateway call.
	PerCallTimeout time.Duration `yaml:"per_call_timeout"`

	// GlobalTimeout bounds the whole run. Expiry cancels the run and
	// preserves partial results.
	GlobalTimeout time.Duration `yaml:"global_timeout"`

	// MaxOutputTokens caps generation length per call.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// EnableMetaRefine turns on the final polish pass.
	EnableMetaRefine bool `yaml:"enable_meta_refine"`

	// Per-stage sampling temperatures.
	PlannerTemp     float64 `yaml:"planner_temp"`
	ThinkerTemp     float64 `yaml:"thinker_temp"`
	CriticTemp      float64 `yaml:"critic_temp"`
	RefinerTemp     float64 `yaml:"refiner_temp"`
	MetaRefinerTemp float64 `yaml:"meta_refiner_temp"`
}

// DefaultConfig returns the standard tunables: deterministic planning and
// refinement, hot diverse thinking, a moderate critic.
func DefaultConfig() Config {
	return Config{
		Model:            "gemini-2.5-flash",
		NPaths:           4,
		MaxPaths:         8,
		TopK:             2,
		QualityThreshold: 6.0,
		MaxConcurrency:   8,
		PerCallTimeout:   90 * time.Second,
		GlobalTimeout:    480 * time.Second,
		MaxOutputTokens:  8192,
		EnableMetaRefine: true,
		PlannerTemp:      0.2,
		ThinkerTemp:      1.1,
		CriticTemp:       0.5,
		RefinerTemp:      0.2,
		MetaRefinerTemp:  0.8,
	}
}

// LoadConfig reads a YAML config file over DefaultConfig. Missing keys
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// UnmarshalYAML decodes the config, accepting Go duration strings like
// "90s" for the timeout fields and keeping defaults for absent keys.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Model            *string  `yaml:"model"`
		NPaths           *int     `yaml:"n_paths"`
		MaxPaths         *int     `yaml:"max_paths"`
		TopK             *int     `yaml:"top_k"`
		QualityThreshold *float64 `yaml:"quality_threshold"`
		MaxConcurrency   *int     `yaml:"max_concurrency"`
		PerCallTimeout   *string  `yaml:"per_call_timeout"`
		GlobalTimeout    *string  `yaml:"global_timeout"`
		MaxOutputTokens  *int     `yaml:"max_output_tokens"`
		EnableMetaRefine *bool    `yaml:"enable_meta_refine"`
		PlannerTemp      *float64 `yaml:"planner_temp"`
		ThinkerTemp      *float64 `yaml:"thinker_temp"`
		CriticTemp       *float64 `yaml:"critic_temp"`
		RefinerTemp      *float64 `yaml:"refiner_temp"`
		MetaRefinerTemp  *float64 `yaml:"meta_refiner_temp"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	setDuration := func(field string, src *string, dst *time.Duration) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", field, err)
		}
		*dst = d
		return nil
	}
	if err := setDuration("per_call_timeout", raw.PerCallTimeout, &c.PerCallTimeout); err != nil {
		return err
	}
	if err := setDuration("global_timeout", raw.GlobalTimeout, &c.GlobalTimeout); err != nil {
		return err
	}

	if raw.Model != nil {
		c.Model = *raw.Model
	}
	if raw.NPaths != nil {
		c.NPaths = *raw.NPaths
	}
	if raw.MaxPaths != nil {
		c.MaxPaths = *raw.MaxPaths
	}
	if raw.TopK != nil {
		c.TopK = *raw.TopK
	}
	if raw.QualityThreshold != nil {
		c.QualityThreshold = *raw.QualityThreshold
	}
	if raw.MaxConcurrency != nil {
		c.MaxConcurrency = *raw.MaxConcurrency
	}
	if raw.MaxOutputTokens != nil {
		c.MaxOutputTokens = *raw.MaxOutputTokens
	}
	if raw.EnableMetaRefine != nil {
		c.EnableMetaRefine = *raw.EnableMetaRefine
	}
	if raw.PlannerTemp != nil {
		c.PlannerTemp = *raw.PlannerTemp
	}
	if raw.ThinkerTemp != nil {
		c.ThinkerTemp = *raw.ThinkerTemp
	}
	if raw.CriticTemp != nil {
		c.CriticTemp = *raw.CriticTemp
	}
	if raw.RefinerTemp != nil {
		c.RefinerTemp = *raw.RefinerTemp
	}
	if raw.MetaRefinerTemp != nil {
		c.MetaRefinerTemp = *raw.MetaRefinerTemp
	}
	return nil
}

// Validate rejects out-of-range tunables before any remote call.
func (c Config) Validate() error {
	if c.Model == "" {
		return &ValidationError{Field: "model", Message: "must not be empty"}
	}
	if c.NPaths < MinPaths || c.NPaths > MaxPathsCap {
		return &ValidationError{Field: "n_paths", Message: fmt.Sprintf("must be between %d and %d, got %d", MinPaths, MaxPathsCap, c.NPaths)}
	}
	if c.MaxPaths != 0 {
		if c.MaxPaths < c.NPaths {
			return &ValidationError{Field: "max_paths", Message: fmt.Sprintf("must be at least n_paths (%d), got %d", c.NPaths, c.MaxPaths)}
		}
		if c.MaxPaths > MaxPathsCap {
			return &ValidationError{Field: "max_paths", Message: fmt.Sprintf("must be at most %d, got %d", MaxPathsCap, c.MaxPaths)}
		}
	}
	if c.TopK < MinTopK || c.TopK > MaxTopK {
		return &ValidationError{Field: "top_k", Message: fmt.Sprintf("must be between %d and %d, got %d", MinTopK, MaxTopK, c.TopK)}
	}
	if c.TopK > c.NPaths {
		return &ValidationError{Field: "top_k", Message: fmt.Sprintf("must not exceed n_paths (%d), got %d", c.NPaths, c.TopK)}
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 10 {
		return &ValidationError{Field: "quality_threshold", Message: fmt.Sprintf("must be between 0 and 10, got %g", c.QualityThreshold)}
	}
	if c.MaxConcurrency < 0 {
		return &ValidationError{Field: "max_concurrency", Message: "must not be negative"}
	}
	if c.PerCallTimeout <= 0 {
		return &ValidationError{Field: "per_call_timeout", Message: "must be positive"}
	}
	if c.GlobalTimeout < 30*time.Second || c.GlobalTimeout > 960*time.Second {
		return &ValidationError{Field: "global_timeout", Message: fmt.Sprintf("must be between 30s and 960s, got %s", c.GlobalTimeout)}
	}
	if c.MaxOutputTokens <= 0 {
		return &ValidationError{Field: "max_output_tokens", Message: "must be positive"}
	}
	for _, t := range []struct {
		name string
		val  float64
	}{
		{"planner_temp", c.PlannerTemp},
		{"thinker_temp", c.ThinkerTemp},
		{"critic_temp", c.CriticTemp},
		{"refiner_temp", c.RefinerTemp},
		{"meta_refiner_temp", c.MetaRefinerTemp},
	} {
		if t.val < 0 || t.val > 2 {
			return &ValidationError{Field: t.name, Message: fmt.Sprintf("must be between 0 and 2, got %g", t.val)}
		}
	}
	return nil
}

// maxPaths resolves the effective ceiling.
func (c Config) maxPaths() int {
	if c.MaxPaths > 0 {
		return c.MaxPaths
	}
	m := 2 * c.NPaths
	if m > MaxPathsCap {
		m = MaxPathsCap
	}
	return m
}

// ValidateQuery checks a run's query string.
func ValidateQuery(query string) error {
	if len(query) < MinQueryLen {
		return &ValidationError{Field: "query", Message: "must not be empty"}
	}
	if len(query) > MaxQueryLen {
		return &ValidationError{Field: "query", Message: fmt.Sprintf("must be at most %d characters, got %d", MaxQueryLen, len(query))}
	}
	return nil
}
