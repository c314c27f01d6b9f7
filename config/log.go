package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kilianp07/chargectl/infra/logger"
)

// LogConfig defines the application log output.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn or error.
	Level string `json:"level"`
	// Format is json or console. Empty picks console when APP_ENV=dev.
	Format     string `json:"format"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// SetDefaults applies sane defaults.
func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.File != "" {
		if c.MaxSizeMB == 0 {
			c.MaxSizeMB = 10
		}
		if c.MaxBackups == 0 {
			c.MaxBackups = 3
		}
	}
}

// Validate checks the level and format names.
func (c LogConfig) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Format {
	case "", logger.FormatJSON, logger.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Format))
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 {
		errs = append(errs, errors.New("log.max_size_mb and log.max_backups must not be negative"))
	}
	return errors.Join(errs...)
}

// Options converts the section for logger.Setup.
func (c LogConfig) Options() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
	}
}
