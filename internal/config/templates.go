package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# GEX Engine Configuration

[engine]
# Units per contract (NIFTY lot conventions differ; the GEX formula uses this as-is)
contract_multiplier = 100.0
# GEX scale: 0.01 reports gamma exposure per 1% move of the underlying
gex_scale = 0.01
# DEX scale: 1.0 reports notional delta
dex_scale = 1.0
# Snapshots analyzed concurrently by "gex batch"
batch_limit = 4

[bias]
# GEX thresholds are per unit contract multiplier: the engine multiplies them
# by contract_multiplier before comparing against net GEX.
# Net GEX at or above this is strongly long gamma
strong_positive_gex = 50e9
# Net GEX at or below minus this is strongly short gamma
strong_negative_gex = 50e9
# Spot within this percent of the zero-gamma level is flip territory
flip_band_percent = 0.5
high_confidence = 0.85
moderate_confidence = 0.55
low_confidence = 0.3
# Strikes on each side of ATM for flow metrics
flow_window = 5
flow_gex_threshold = 50e9

[chain]
# IV is quoted in percent (14.5 means 14.5%)
iv_in_percent = true
# IV used when a row has none; 0 drops such rows
default_iv = 0.15
# Keep strikes within spot +/- strikes_range * strike_step; 0 keeps all
strikes_range = 0
strike_step = 100.0
# Floor for days to expiry; 0 disables the floor
min_days_to_expiry = 0.0
# Used when the snapshot does not carry a rate
risk_free_rate = 0.07

[logging]
# debug, info, warn, error
level = "info"
# Also write a rotating log file
file = false
# Defaults to ~/.config/gex-engine/logs/gex.log
# file_path = ""
max_size = 50
max_backups = 5
max_age = 14

[ui]
# Enable colored output
color_enabled = true
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
