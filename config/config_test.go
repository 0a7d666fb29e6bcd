/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/docmodel/errors"
)

const sample = `
connections:
  default:
    uri: mongodb://localhost:27017/app
    timeout: 5s
  archive:
    driver: dynamodb
    region: us-west-2
    table: archive
    endpoint: http://localhost:8000
  scratch:
    driver: memory
    database: scratch
`

func envOf(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"archive", "default", "scratch"}, cfg.Aliases())

	def := cfg.Connections["default"]
	assert.Equal(t, DriverMongo, def.DriverName())
	assert.Equal(t, 5*time.Second, def.TimeoutOrDefault())
	assert.Equal(t, "mongodb://localhost:27017/app", def.ConnectionURI())

	archive := cfg.Connections["archive"]
	assert.Equal(t, DriverDynamo, archive.DriverName())
	assert.Equal(t, "dynamodb://us-west-2/archive", archive.ConnectionURI())
	assert.Equal(t, DefaultTimeout, archive.TimeoutOrDefault())

	assert.Equal(t, "memory://scratch", cfg.Connections["scratch"].ConnectionURI())
	assert.NoError(t, cfg.Validate())
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("connections: [unterminated"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docmodel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Connections, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Connections: map[string]*Connection{
		"a": {Driver: "mongodb"},
		"b": {Driver: "dynamodb", Region: "us-east-1"},
		"c": {Driver: "cassandra"},
		"d": {URI: "memory://x", Timeout: -time.Second},
	}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	for _, alias := range []string{`"a"`, `"b"`, `"c"`, `"d"`} {
		assert.Contains(t, err.Error(), alias)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Run("overrides the default alias", func(t *testing.T) {
		cfg, err := Parse([]byte(sample))
		require.NoError(t, err)

		cfg.ApplyEnv(envOf(map[string]string{
			EnvURI:      "mongodb://db.internal:27017",
			EnvDatabase: "prod",
		}))
		def := cfg.Connections["default"]
		assert.Equal(t, "mongodb://db.internal:27017", def.URI)
		assert.Equal(t, "prod", def.Database)
		assert.Equal(t, 5*time.Second, def.Timeout)
	})

	t.Run("creates a dynamodb alias", func(t *testing.T) {
		cfg := &Config{}
		cfg.ApplyEnv(envOf(map[string]string{
			EnvAlias:     "ddb",
			EnvTable:     "docs",
			EnvRegion:    "eu-west-1",
			EnvAccessKey: "AKID",
			EnvSecretKey: "SECRET",
		}))
		conn := cfg.Connections["ddb"]
		require.NotNil(t, conn)
		assert.Equal(t, DriverDynamo, conn.DriverName())
		assert.Equal(t, "dynamodb://eu-west-1/docs", conn.ConnectionURI())
		assert.Equal(t, "AKID", conn.AccessKey)
		assert.Equal(t, "SECRET", conn.SecretKey)
	})

	t.Run("empty environment adds nothing", func(t *testing.T) {
		cfg := &Config{}
		cfg.ApplyEnv(envOf(nil))
		assert.Empty(t, cfg.Connections)
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DOCMODEL_TEST_ONLY=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("DOCMODEL_TEST_ONLY") })

	require.NoError(t, LoadEnv(filepath.Join(dir, "absent.env"), path))
	assert.Equal(t, "from-file", os.Getenv("DOCMODEL_TEST_ONLY"))

	assert.NoError(t, LoadEnv(filepath.Join(dir, "absent.env")))
}
