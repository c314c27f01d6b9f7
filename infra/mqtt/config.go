package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Config defines the broker connection and the Home Assistant discovery
// layout. An empty Broker disables MQTT publishing.
type Config struct {
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
	AuthMethod string `json:"auth_method"`
	QoS        byte   `json:"qos"`
	MaxRetries int    `json:"max_retries"`
	BackoffMS  int    `json:"backoff_ms"`

	DiscoveryPrefix string `json:"discovery_prefix"`
	BaseTopic       string `json:"base_topic"`
	DeviceID        string `json:"device_id"`
	DeviceName      string `json:"device_name"`

	TLSConfig *tls.Config `json:"-"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "chargectl"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
	if c.DiscoveryPrefix == "" {
		c.DiscoveryPrefix = "homeassistant"
	}
	if c.BaseTopic == "" {
		c.BaseTopic = "chargectl"
	}
	c.BaseTopic = strings.Trim(c.BaseTopic, "/")
	if c.DeviceID == "" {
		c.DeviceID = "chargectl"
	}
	if c.DeviceName == "" {
		c.DeviceName = "Charge controller"
	}
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// Validate checks the connection settings of an enabled config.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	var errs []error
	if c.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.QoS))
	}
	switch c.AuthMethod {
	case "", "username_password", "certificate", "both":
	default:
		errs = append(errs, fmt.Errorf("mqtt.auth_method: unknown method %q", c.AuthMethod))
	}
	if c.UseTLS && c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		errs = append(errs, errors.New("mqtt.use_tls requires client_cert, client_key and ca_bundle"))
	}
	if c.MaxRetries < 0 || c.BackoffMS < 0 {
		errs = append(errs, errors.New("mqtt.max_retries and mqtt.backoff_ms must not be negative"))
	}
	return errors.Join(errs...)
}

// AvailabilityTopic carries "online" while connected and the "offline" will.
func (c Config) AvailabilityTopic() string { return c.BaseTopic + "/availability" }

// DiscoveryTopic is the retained Home Assistant device discovery topic.
func (c Config) DiscoveryTopic() string {
	return c.DiscoveryPrefix + "/device/" + c.DeviceID + "/config"
}

// StateTopic is the state topic of one discovery component.
func (c Config) StateTopic(component string) string {
	return c.BaseTopic + "/" + component + "/state"
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
