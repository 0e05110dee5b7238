// Package config provides configuration management for the GEX engine.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"gex-engine/internal/analysis"
	"gex-engine/internal/analysis/bias"
	"gex-engine/internal/analysis/exposure"
	"gex-engine/internal/chain"
	apperrors "gex-engine/internal/errors"
	"gex-engine/internal/logging"
)

// EnvPrefix prefixes environment overrides, e.g. GEX_ENGINE_CONTRACT_MULTIPLIER.
const EnvPrefix = "GEX"

// Config holds all application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Bias    BiasConfig    `mapstructure:"bias"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Logging LoggingConfig `mapstructure:"logging"`
	UI      UIConfig      `mapstructure:"ui"`

	path string
}

// EngineConfig holds the exposure convention and batch settings.
type EngineConfig struct {
	ContractMultiplier float64 `mapstructure:"contract_multiplier"`
	GEXScale           float64 `mapstructure:"gex_scale"`
	DEXScale           float64 `mapstructure:"dex_scale"`
	BatchLimit         int     `mapstructure:"batch_limit"`
}

// BiasConfig holds the signal calibration.
type BiasConfig struct {
	StrongPositiveGEX  float64 `mapstructure:"strong_positive_gex"`
	StrongNegativeGEX  float64 `mapstructure:"strong_negative_gex"`
	FlipBandPercent    float64 `mapstructure:"flip_band_percent"`
	HighConfidence     float64 `mapstructure:"high_confidence"`
	ModerateConfidence float64 `mapstructure:"moderate_confidence"`
	LowConfidence      float64 `mapstructure:"low_confidence"`
	FlowWindow         int     `mapstructure:"flow_window"`
	FlowGEXThreshold   float64 `mapstructure:"flow_gex_threshold"`
}

// ChainConfig holds the snapshot normalization settings.
type ChainConfig struct {
	IVInPercent     bool    `mapstructure:"iv_in_percent"`
	DefaultIV       float64 `mapstructure:"default_iv"`
	StrikesRange    int     `mapstructure:"strikes_range"`
	StrikeStep      float64 `mapstructure:"strike_step"`
	MinDaysToExpiry float64 `mapstructure:"min_days_to_expiry"`
	RiskFreeRate    float64 `mapstructure:"risk_free_rate"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/gex-engine"
	}
	return filepath.Join(home, ".config", "gex-engine")
}

// Default returns the built-in configuration.
func Default() *Config {
	ec := analysis.DefaultEngineConfig()
	th := ec.Thresholds
	co := chain.DefaultOptions()
	lc := logging.DefaultLogConfig()

	return &Config{
		Engine: EngineConfig{
			ContractMultiplier: ec.Exposure.ContractMultiplier,
			GEXScale:           ec.Exposure.GEXScale,
			DEXScale:           ec.Exposure.DEXScale,
			BatchLimit:         ec.BatchLimit,
		},
		Bias: BiasConfig{
			StrongPositiveGEX:  th.StrongPositiveGEX,
			StrongNegativeGEX:  th.StrongNegativeGEX,
			FlipBandPercent:    th.FlipBandPercent,
			HighConfidence:     th.HighConfidence,
			ModerateConfidence: th.ModerateConfidence,
			LowConfidence:      th.LowConfidence,
			FlowWindow:         th.FlowWindow,
			FlowGEXThreshold:   th.FlowGEXThreshold,
		},
		Chain: ChainConfig{
			IVInPercent:     co.IVInPercent,
			DefaultIV:       co.DefaultIV,
			StrikesRange:    co.StrikesRange,
			StrikeStep:      co.StrikeStep,
			MinDaysToExpiry: co.MinDaysToExpiry,
			RiskFreeRate:    co.RiskFreeRate,
		},
		Logging: LoggingConfig{
			Level:      lc.Level,
			File:       lc.File,
			FilePath:   lc.FilePath,
			MaxSize:    lc.MaxSize,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAge,
		},
		UI: UIConfig{ColorEnabled: true},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is created from the template and the defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := newViper(configDir)
	path := filepath.Join(configDir, "config.toml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.Wrap(err, "reading config.toml")
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{path: path}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.Wrap(err, "decoding config.toml")
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(err, "validating config")
	}

	return cfg, nil
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("engine.contract_multiplier", d.Engine.ContractMultiplier)
	v.SetDefault("engine.gex_scale", d.Engine.GEXScale)
	v.SetDefault("engine.dex_scale", d.Engine.DEXScale)
	v.SetDefault("engine.batch_limit", d.Engine.BatchLimit)

	v.SetDefault("bias.strong_positive_gex", d.Bias.StrongPositiveGEX)
	v.SetDefault("bias.strong_negative_gex", d.Bias.StrongNegativeGEX)
	v.SetDefault("bias.flip_band_percent", d.Bias.FlipBandPercent)
	v.SetDefault("bias.high_confidence", d.Bias.HighConfidence)
	v.SetDefault("bias.moderate_confidence", d.Bias.ModerateConfidence)
	v.SetDefault("bias.low_confidence", d.Bias.LowConfidence)
	v.SetDefault("bias.flow_window", d.Bias.FlowWindow)
	v.SetDefault("bias.flow_gex_threshold", d.Bias.FlowGEXThreshold)

	v.SetDefault("chain.iv_in_percent", d.Chain.IVInPercent)
	v.SetDefault("chain.default_iv", d.Chain.DefaultIV)
	v.SetDefault("chain.strikes_range", d.Chain.StrikesRange)
	v.SetDefault("chain.strike_step", d.Chain.StrikeStep)
	v.SetDefault("chain.min_days_to_expiry", d.Chain.MinDaysToExpiry)
	v.SetDefault("chain.risk_free_rate", d.Chain.RiskFreeRate)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.file_path", d.Logging.FilePath)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age", d.Logging.MaxAge)

	v.SetDefault("ui.color_enabled", d.UI.ColorEnabled)
}

// applyEnvOverrides handles the short aliases that do not follow the
// section_key naming. The level alias is checked by Validate.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("GEX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GEX_RISK_FREE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return apperrors.NewConfigError("GEX_RISK_FREE_RATE", v, "must be a number")
		}
		cfg.Chain.RiskFreeRate = rate
	}
	if os.Getenv("NO_COLOR") != "" {
		cfg.UI.ColorEnabled = false
	}
	return nil
}

// Path returns the config file the configuration was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.ExposureConfig().Validate(); err != nil {
		return err
	}
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if err := c.ChainOptions().Validate(); err != nil {
		return err
	}
	if c.Engine.BatchLimit < 0 {
		return apperrors.NewConfigError("batch_limit", c.Engine.BatchLimit, "must be non-negative")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return apperrors.NewConfigError("logging.level", c.Logging.Level, "must be debug, info, warn or error")
	}
	return nil
}

// ExposureConfig returns the exposure convention.
func (c *Config) ExposureConfig() exposure.Config {
	return exposure.Config{
		ContractMultiplier: c.Engine.ContractMultiplier,
		GEXScale:           c.Engine.GEXScale,
		DEXScale:           c.Engine.DEXScale,
	}
}

// Thresholds returns the bias calibration.
func (c *Config) Thresholds() bias.Thresholds {
	return bias.Thresholds{
		StrongPositiveGEX:  c.Bias.StrongPositiveGEX,
		StrongNegativeGEX:  c.Bias.StrongNegativeGEX,
		FlipBandPercent:    c.Bias.FlipBandPercent,
		HighConfidence:     c.Bias.HighConfidence,
		ModerateConfidence: c.Bias.ModerateConfidence,
		LowConfidence:      c.Bias.LowConfidence,
		FlowWindow:         c.Bias.FlowWindow,
		FlowGEXThreshold:   c.Bias.FlowGEXThreshold,
	}
}

// ChainOptions returns the snapshot normalization options.
func (c *Config) ChainOptions() chain.Options {
	return chain.Options{
		IVInPercent:     c.Chain.IVInPercent,
		DefaultIV:       c.Chain.DefaultIV,
		StrikesRange:    c.Chain.StrikesRange,
		StrikeStep:      c.Chain.StrikeStep,
		MinDaysToExpiry: c.Chain.MinDaysToExpiry,
		RiskFreeRate:    c.Chain.RiskFreeRate,
	}
}

// EngineConfig returns the analysis engine configuration.
func (c *Config) EngineConfig() analysis.EngineConfig {
	return analysis.EngineConfig{
		Exposure:   c.ExposureConfig(),
		Thresholds: c.Thresholds(),
		BatchLimit: c.Engine.BatchLimit,
	}
}

// LogConfig returns the logger configuration.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    true,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}
