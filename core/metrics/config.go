package metrics

import "github.com/kilianp07/chargectl/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// HTTPAddr is the listen address for /metrics and the charger status
	// API. Empty disables the HTTP server.
	HTTPAddr string `json:"http_addr"`
	// APIToken, when set, is required as a bearer token by the status API.
	APIToken string `json:"api_token"`
}
