package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/hotspotkeeper/internal/flagx"
	"github.com/dmitrijs2005/hotspotkeeper/internal/timex"
)

// FileConfig is the on-disk shape of Config. Durations accept "10s" or
// integer nanoseconds. Absent keys leave the current value alone.
type FileConfig struct {
	HTTPAddr            string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr            string         `json:"grpc_addr" yaml:"grpc_addr"`
	RouterAddress       string         `json:"router_address" yaml:"router_address"`
	RouterUser          string         `json:"router_user" yaml:"router_user"`
	RouterPassword      string         `json:"router_password" yaml:"router_password"`
	RouterCallTimeout   timex.Duration `json:"router_call_timeout" yaml:"router_call_timeout"`
	PendingBackend      string         `json:"pending_backend" yaml:"pending_backend"`
	PendingDir          string         `json:"pending_dir" yaml:"pending_dir"`
	DatabaseDSN         string         `json:"database_dsn" yaml:"database_dsn"`
	RedisAddr           string         `json:"redis_addr" yaml:"redis_addr"`
	LockTTL             timex.Duration `json:"lock_ttl" yaml:"lock_ttl"`
	SecretKey           string         `json:"secret_key" yaml:"secret_key"`
	OperatorTokenTTL    timex.Duration `json:"operator_token_ttl" yaml:"operator_token_ttl"`
	Timezone            string         `json:"timezone" yaml:"timezone"`
	HealthCheckInterval timex.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	DisabledValues      []string       `json:"disabled_values" yaml:"disabled_values"`
	EnabledValues       []string       `json:"enabled_values" yaml:"enabled_values"`
	S3Bucket            string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region            string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3User              string         `json:"s3_user" yaml:"s3_user"`
	S3Password          string         `json:"s3_password" yaml:"s3_password"`
}

// parseFile overlays the file named by -c/-config, if any. Files ending in
// .yaml or .yml are read as YAML, everything else as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlagFrom(args)
	if path == "" {
		return nil
	}
	return ReadFile(config, path)
}

// ReadFile overlays the settings stored at path onto config.
func ReadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.GRPCAddr, fc.GRPCAddr)
	setString(&c.RouterAddress, fc.RouterAddress)
	setString(&c.RouterUser, fc.RouterUser)
	setString(&c.RouterPassword, fc.RouterPassword)
	setString(&c.PendingBackend, fc.PendingBackend)
	setString(&c.PendingDir, fc.PendingDir)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.RedisAddr, fc.RedisAddr)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.Timezone, fc.Timezone)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.S3User, fc.S3User)
	setString(&c.S3Password, fc.S3Password)

	if fc.RouterCallTimeout.Duration > 0 {
		c.RouterCallTimeout = fc.RouterCallTimeout.Duration
	}
	if fc.LockTTL.Duration > 0 {
		c.LockTTL = fc.LockTTL.Duration
	}
	if fc.OperatorTokenTTL.Duration > 0 {
		c.OperatorTokenTTL = fc.OperatorTokenTTL.Duration
	}
	if fc.HealthCheckInterval.Duration > 0 {
		c.HealthCheckInterval = fc.HealthCheckInterval.Duration
	}
	if len(fc.DisabledValues) > 0 {
		c.DisabledValues = fc.DisabledValues
	}
	if len(fc.EnabledValues) > 0 {
		c.EnabledValues = fc.EnabledValues
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
