/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/suparena/docmodel/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Drivers understood by docmodel.ConnectConfig.
const (
	DriverMongo    = "mongodb"
	DriverDynamo   = "dynamodb"
	DriverMemory   = "memory"
	DefaultAlias   = "default"
	DefaultTimeout = 10 * time.Second
)

// Environment variables read by ApplyEnv.
const (
	EnvURI       = "DOCMODEL_URI"
	EnvAlias     = "DOCMODEL_ALIAS"
	EnvDatabase  = "DOCMODEL_DATABASE"
	EnvTable     = "DOCMODEL_DDB_TABLE"
	EnvRegion    = "AWS_REGION"
	EnvAccessKey = "AWS_ACCESS_KEY_ID"
	EnvSecretKey = "AWS_SECRET_ACCESS_KEY"
)

// Config lists the connections to open, keyed by alias.
type Config struct {
	Connections map[string]*Connection `yaml:"connections"`
}

// Connection describes one alias.
type Connection struct {
	Driver   string        `yaml:"driver,omitempty"`
	URI      string        `yaml:"uri,omitempty"`
	Database string        `yaml:"database,omitempty"`
	Region   string        `yaml:"region,omitempty"`
	Table    string        `yaml:"table,omitempty"`
	Endpoint string        `yaml:"endpoint,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`

	// credentials are only taken from the environment
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// Load reads a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Connections == nil {
		cfg.Connections = make(map[string]*Connection)
	}
	return cfg, nil
}

// LoadEnv loads .env files into the process environment. Missing files are
// ignored; variables already set are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// FromEnv builds a configuration from the environment alone.
func FromEnv() *Config {
	cfg := &Config{Connections: make(map[string]*Connection)}
	cfg.ApplyEnv(os.Getenv)
	return cfg
}

// ApplyEnv overlays environment settings on the alias named by
// DOCMODEL_ALIAS. getenv is normally os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Connections == nil {
		c.Connections = make(map[string]*Connection)
	}
	alias := getenv(EnvAlias)
	if alias == "" {
		alias = DefaultAlias
	}
	conn := c.Connections[alias]
	created := conn == nil
	if created {
		conn = &Connection{}
	}

	set := func(dst *string, key string) bool {
		if v := getenv(key); v != "" {
			*dst = v
			return true
		}
		return false
	}
	touched := set(&conn.URI, EnvURI)
	touched = set(&conn.Database, EnvDatabase) || touched
	if set(&conn.Table, EnvTable) {
		touched = true
		if conn.Driver == "" && conn.URI == "" {
			conn.Driver = DriverDynamo
		}
	}
	set(&conn.Region, EnvRegion)
	set(&conn.AccessKey, EnvAccessKey)
	set(&conn.SecretKey, EnvSecretKey)

	if !created || touched {
		c.Connections[alias] = conn
	}
}

// Aliases returns the configured aliases, sorted.
func (c *Config) Aliases() []string {
	out := make([]string, 0, len(c.Connections))
	for alias := range c.Connections {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Validate checks every connection and reports all problems.
func (c *Config) Validate() error {
	var errs error
	for _, alias := range c.Aliases() {
		if err := c.Connections[alias].Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("connection %q: %w", alias, err))
		}
	}
	return errs
}

// DriverName returns the configured driver, inferred from the URI when unset.
func (c *Connection) DriverName() string {
	if c.Driver != "" {
		return strings.ToLower(c.Driver)
	}
	switch {
	case strings.HasPrefix(c.URI, "mongodb://"), strings.HasPrefix(c.URI, "mongodb+srv://"):
		return DriverMongo
	case strings.HasPrefix(c.URI, "dynamodb://"):
		return DriverDynamo
	case strings.HasPrefix(c.URI, "memory://"):
		return DriverMemory
	}
	return ""
}

func (c *Connection) Validate() error {
	switch c.DriverName() {
	case DriverMongo:
		if c.URI == "" {
			return errors.NewValidationError("uri", "required for mongodb")
		}
	case DriverDynamo:
		if c.URI == "" && (c.Region == "" || c.Table == "") {
			return errors.NewValidationError("table", "region and table are required for dynamodb")
		}
	case DriverMemory:
	default:
		return errors.NewValidationError("driver", fmt.Sprintf("unknown driver %q", c.Driver))
	}
	if c.Timeout < 0 {
		return errors.NewValidationError("timeout", "must not be negative")
	}
	return nil
}

// ConnectionURI returns the URI docmodel.Open understands for c.
func (c *Connection) ConnectionURI() string {
	if c.URI != "" {
		return c.URI
	}
	switch c.DriverName() {
	case DriverDynamo:
		u := url.URL{Scheme: "dynamodb", Host: c.Region, Path: "/" + c.Table}
		return u.String()
	case DriverMemory:
		name := c.Database
		if name == "" {
			name = "test"
		}
		return "memory://" + name
	}
	return ""
}

// TimeoutOrDefault returns the connect timeout.
func (c *Connection) TimeoutOrDefault() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}
