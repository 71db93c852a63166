package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, DriverNeo4j, cfg.Store.Driver)
	assert.Equal(t, "neo4j://neo4j:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.User)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Neo4j.MaxPoolSize)
	assert.Equal(t, time.Minute, cfg.Neo4j.AcquireTimeout)
}

func TestLoad_Neo4jDurationFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TASKBOARD_NEO4J_ACQUIRE_TIMEOUT", "15s")
	t.Setenv("TASKBOARD_NEO4J_DATABASE", "boards")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Neo4j.AcquireTimeout)
	assert.Equal(t, "boards", cfg.Neo4j.Database)
}

func TestInitNeo4j(t *testing.T) {
	driver, err := InitNeo4j(Neo4jConfig{URI: "neo4j://localhost:7687", User: "neo4j", Password: "x", MaxPoolSize: 5})
	require.NoError(t, err)
	require.NoError(t, driver.Close(context.Background()))

	_, err = InitNeo4j(Neo4jConfig{URI: "http://localhost:7474"})
	assert.Error(t, err)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: 127.0.0.1:9000
store:
  driver: sqlite
sqlite:
  path: /tmp/board.db
log:
  level: debug
`), 0o644))

	t.Setenv("TASKBOARD_SQLITE_PATH", "/var/lib/board.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/board.db", cfg.SQLite.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{Store: StoreConfig{Driver: "postgres"}, Log: LogConfig{Level: "info"}}
	assert.ErrorContains(t, cfg.Validate(), "unknown store.driver")

	cfg.Store.Driver = DriverSQLite
	assert.ErrorContains(t, cfg.Validate(), "sqlite.path")

	cfg.SQLite.Path = "x.db"
	cfg.Log.Level = "loud"
	assert.ErrorContains(t, cfg.Validate(), "log.level")

	cfg.Log.Level = "warn"
	assert.NoError(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	log.Info("hidden")
	log.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}
