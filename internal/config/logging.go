package config

import "facetforge/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" env:"LOG_LEVEL"`       // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode" env:"DEBUG_MCP"` // false = only errors reach stderr
	File       string          `yaml:"file"`                        // optional rotated JSON log
	MaxSizeMB  int             `yaml:"max_size_mb"`
	MaxBackups int             `yaml:"max_backups"`
	MaxAgeDays int             `yaml:"max_age_days"`
	Categories map[string]bool `yaml:"categories"` // Per-category toggles

	// AuditFile receives a JSON-lines audit trail; empty disables it.
	AuditFile string `yaml:"audit_file" env:"FACETFORGE_AUDIT_FILE"`
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns true if the category is enabled or not specified.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// LoggerConfig converts c for logging.Initialize. verbose forces debug mode
// at debug level.
func (c *LoggingConfig) LoggerConfig(verbose bool) logging.Config {
	out := logging.Config{
		Level:      c.Level,
		DebugMode:  c.DebugMode,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Categories: c.Categories,
	}
	if verbose {
		out.DebugMode = true
		out.Level = "debug"
	}
	return out
}
