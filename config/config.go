package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/chargectl/core/metrics"
	"github.com/kilianp07/chargectl/infra/homeassistant"
	"github.com/kilianp07/chargectl/infra/monitoring"
	"github.com/kilianp07/chargectl/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys, e.g. CHARGECTL_API__TOKEN sets api.token.
const EnvPrefix = "CHARGECTL_"

type Config struct {
	API     homeassistant.Config `json:"api"`
	Charger ChargerConfig        `json:"charger"`
	Battery BatteryConfig        `json:"battery"`
	MQTT    mqtt.Config          `json:"mqtt"`
	Metrics metrics.Config       `json:"metrics"`
	Log     LogConfig            `json:"log"`
	Sentry  monitoring.Config    `json:"sentry"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills zero values in every section.
func (c *Config) SetDefaults() {
	c.API.SetDefaults()
	c.Charger.SetDefaults()
	c.MQTT.SetDefaults()
	c.Log.SetDefaults()
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.API.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Engine(); err != nil {
		errs = append(errs, err)
	}
	if err := c.MQTT.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
