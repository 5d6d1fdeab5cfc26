// Package config handles configuration for the server component,
// including defaults, a JSON or YAML file overlay, and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
)

// Config holds runtime settings for the hotspotkeeper server.
//
// Fields:
//   - HTTPAddr / GRPCAddr: bind addresses for the decision API and health.
//   - Router*: management API address, credentials and per-call timeout.
//   - PendingBackend: "file", "sqlite" or "postgres"; PendingDir is used by
//     the file backend and DatabaseDSN by the other two.
//   - RedisAddr: enables cross-process locking when set.
//   - SecretKey: HMAC secret for operator JWTs (HS256).
//   - Timezone: IANA zone of the router clock, or "Local".
//   - DisabledValues / EnabledValues: account flag encodings.
//   - S3*: outcome archive; an empty bucket disables it.
type Config struct {
	HTTPAddr            string
	GRPCAddr            string
	RouterAddress       string
	RouterUser          string
	RouterPassword      string
	RouterCallTimeout   time.Duration
	PendingBackend      string
	PendingDir          string
	DatabaseDSN         string
	RedisAddr           string
	LockTTL             time.Duration
	SecretKey           string
	OperatorTokenTTL    time.Duration
	Timezone            string
	HealthCheckInterval time.Duration
	DisabledValues      []string
	EnabledValues       []string
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string
	S3User              string
	S3Password          string
}

// lockedRouterCalls bounds the router calls one approval makes while it holds
// a username lock, compensation and the fresh-session retry included.
const lockedRouterCalls = 20

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":50051"
	c.RouterAddress = "192.168.88.1:8728"
	c.RouterUser = "admin"
	c.RouterPassword = ""
	c.RouterCallTimeout = 10 * time.Second
	c.PendingBackend = "file"
	c.PendingDir = "pending_users"
	c.DatabaseDSN = "pending.db"
	c.RedisAddr = ""
	c.LockTTL = 5 * time.Minute
	c.SecretKey = "secretKey"
	c.OperatorTokenTTL = 24 * time.Hour
	c.Timezone = "Local"
	c.HealthCheckInterval = time.Minute
	c.DisabledValues = []string{"true", "yes"}
	c.EnabledValues = []string{"false", "no"}
	c.S3Region = "us-east-1"
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Encoding returns the account flag encoding. Empty lists fall back to the
// device defaults.
func (c *Config) Encoding() device.Encoding {
	enc := device.DefaultEncoding()
	if len(c.DisabledValues) > 0 {
		enc.Disabled = c.DisabledValues
	}
	if len(c.EnabledValues) > 0 {
		enc.Enabled = c.EnabledValues
	}
	return enc
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.PendingBackend {
	case "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown pending backend %q", c.PendingBackend)
	}
	if c.RouterAddress == "" {
		return fmt.Errorf("router address is required")
	}
	if c.RouterCallTimeout <= 0 {
		return fmt.Errorf("router call timeout must be positive")
	}
	if c.RedisAddr != "" && c.LockTTL < lockedRouterCalls*c.RouterCallTimeout {
		return fmt.Errorf("lock ttl %s is shorter than %d router calls of %s",
			c.LockTTL, lockedRouterCalls, c.RouterCallTimeout)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags. args
// are the arguments without the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
