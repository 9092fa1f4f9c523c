package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models gearline.yml. Sizes and intervals keep their wire units
// (bytes, milliseconds); accessors convert where callers need durations.
type Config struct {
	MaxParentTraversalDepth  int   `yaml:"max_parent_traversal_depth"`
	MaxFileReadRetries       int   `yaml:"max_file_read_retries"`
	FileReadRetryDelayMs     int   `yaml:"file_read_retry_delay_ms"`
	MaxSnapshotFileSizeBytes int64 `yaml:"max_snapshot_file_size_bytes"`
	VerboseLogging           bool  `yaml:"verbose_logging"`
	MinRestoreIntervalMs     int   `yaml:"min_restore_interval_ms"`

	// EquipmentRootTypeID anchors slot resolution. Supplied by the host's
	// domain layer; a malformed value is warned about, not refused.
	EquipmentRootTypeID string `yaml:"equipment_root_type_id"`
}

type bound struct {
	name     string
	min, max int64
}

const configName = "gearline.yml"

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		MaxParentTraversalDepth:  20,
		MaxFileReadRetries:       5,
		FileReadRetryDelayMs:     150,
		MaxSnapshotFileSizeBytes: 10 << 20,
		VerboseLogging:           false,
		MinRestoreIntervalMs:     1000,
		EquipmentRootTypeID:      "55d7217a4bdc2d86028b456d",
	}
}

// Path returns the config file location for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, configName)
}

// Load reads config from the workspace, falling back to defaults when the
// file is absent. Out-of-range values are clamped; the warnings are returned
// so the caller can log them.
func Load(workspace string) (*Config, []string, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil, nil
		}
		return nil, nil, err
	}
	cfg, err := FromYAML(data)
	if err != nil {
		return nil, nil, err
	}
	warnings := cfg.Clamp()
	return cfg, warnings, nil
}

// FromYAML parses config bytes over the defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configName, err)
	}
	return cfg, nil
}

// Clamp forces every option into its documented range and reports what was
// adjusted.
func (c *Config) Clamp() []string {
	var warnings []string
	clampInt := func(v *int, b bound) {
		if int64(*v) < b.min {
			warnings = append(warnings, fmt.Sprintf("%s %d below minimum, using %d", b.name, *v, b.min))
			*v = int(b.min)
		} else if int64(*v) > b.max {
			warnings = append(warnings, fmt.Sprintf("%s %d above maximum, using %d", b.name, *v, b.max))
			*v = int(b.max)
		}
	}
	clampInt(&c.MaxParentTraversalDepth, bound{name: "max_parent_traversal_depth", min: 10, max: 100})
	clampInt(&c.MaxFileReadRetries, bound{name: "max_file_read_retries", min: 1, max: 20})
	clampInt(&c.FileReadRetryDelayMs, bound{name: "file_read_retry_delay_ms", min: 50, max: 2000})
	clampInt(&c.MinRestoreIntervalMs, bound{name: "min_restore_interval_ms", min: 0, max: 60000})
	if c.MaxSnapshotFileSizeBytes < 1<<10 {
		warnings = append(warnings, fmt.Sprintf("max_snapshot_file_size_bytes %d below minimum, using %d", c.MaxSnapshotFileSizeBytes, int64(1<<10)))
		c.MaxSnapshotFileSizeBytes = 1 << 10
	} else if c.MaxSnapshotFileSizeBytes > 100<<20 {
		warnings = append(warnings, fmt.Sprintf("max_snapshot_file_size_bytes %d above maximum, using %d", c.MaxSnapshotFileSizeBytes, int64(100<<20)))
		c.MaxSnapshotFileSizeBytes = 100 << 20
	}
	return warnings
}

// RetryDelay returns the base delay between snapshot read attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.FileReadRetryDelayMs) * time.Millisecond
}

// MinRestoreInterval returns the per-identity rate-limit window.
func (c *Config) MinRestoreInterval() time.Duration {
	return time.Duration(c.MinRestoreIntervalMs) * time.Millisecond
}

// ToYAML renders the config for export.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
