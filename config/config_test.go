package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
store:
  driver: mysql
  host: db.internal
warehouse:
  host: udp.example.edu
  is_unizin: false
lrs:
  engine: postgres
  cutoff_condition: "AND event_time > @data_last_updated"
sync:
  views_disabled: [show_grade_distribution]
  run_at_times: ["04:00", "16:00"]
lock:
  backend: table
  ttl: 2h
resource_access:
  canvas:
    query:
      - "SELECT * FROM events"
      - "WHERE course_id IN @course_ids"
    resolves_login_name: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Store.Host)
	assert.Equal(t, 3306, cfg.Store.Port, "未配置的项使用默认值")
	assert.False(t, cfg.Warehouse.IsUnizin)
	assert.Equal(t, "postgres", cfg.Warehouse.Driver)
	assert.False(t, cfg.LRS.IsBigQuery())
	assert.Equal(t, 1000, cfg.Sync.BatchSize)
	assert.Equal(t, int64(17700000000000000), cfg.Sync.CanvasDataIDIncrement)
	assert.Equal(t, "America/Detroit", cfg.Sync.TimeZone)
	assert.Equal(t, []string{"04:00", "16:00"}, cfg.Sync.RunAtTimes)
	assert.True(t, cfg.Sync.ResourceSyncEnabled())
	assert.Equal(t, 2*time.Hour, cfg.Lock.TTL)

	require.Contains(t, cfg.ResourceAccess, "canvas")
	canvas := cfg.ResourceAccess["canvas"]
	assert.Len(t, canvas.Query, 2)
	assert.True(t, canvas.ResolvesLoginName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("MYLA_SYNC_BATCH_SIZE", "50")
	t.Setenv("MYLA_STORE_HOST", "override.internal")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, "override.internal", cfg.Store.Host)
}

func TestSyncConfig_ResourceSyncDisabled(t *testing.T) {
	c := SyncConfig{ViewsDisabled: []string{"show_assignment_planning", "show_resources_accessed"}}
	assert.False(t, c.ResourceSyncEnabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store: DatabaseConfig{Driver: "mysql"},
			LRS:   LRSConfig{Engine: "bigquery", CostPerTB: 5},
			Sync:  SyncConfig{BatchSize: 1000, TimeZone: "UTC"},
			Lock:  LockConfig{Backend: "none"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"store driver", func(c *Config) { c.Store.Driver = "sqlite" }},
		{"batch size", func(c *Config) { c.Sync.BatchSize = 0 }},
		{"lrs engine", func(c *Config) { c.LRS.Engine = "snowflake" }},
		{"negative cost", func(c *Config) { c.LRS.CostPerTB = -1 }},
		{"lock backend", func(c *Config) { c.Lock.Backend = "etcd" }},
		{"time zone", func(c *Config) { c.Sync.TimeZone = "Mars/Olympus" }},
		{"empty kind query", func(c *Config) {
			c.ResourceAccess = map[string]ResourceKindConfig{"canvas": {}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDSN(t *testing.T) {
	my := DatabaseConfig{Driver: "mysql", User: "u", Password: "p", Host: "h", Port: 3306, Name: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=UTC", my.DSN())

	pg := DatabaseConfig{Driver: "postgres", User: "u", Password: "p", Host: "h", Port: 5432, Name: "d", SSLMode: "require"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=require TimeZone=UTC", pg.DSN())
}
