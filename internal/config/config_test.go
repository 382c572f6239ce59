package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 4, cfg.Scheduler.Concurrency)
	require.Equal(t, time.Minute, cfg.TickInterval())
	require.Equal(t, "RankRocket/1.0 (+https://rankrocket.com)", cfg.Crawler.UserAgent)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout())
	require.Equal(t, "memory", cfg.Database.Provider)
	require.Equal(t, "schedule_records", cfg.Database.Table)
	require.Equal(t, "memory", cfg.Snapshot.Provider)
	require.Equal(t, "pages", cfg.Snapshot.Prefix)
	require.True(t, cfg.Logging.Development)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
scheduler:
  concurrency: 8
  tick_interval_seconds: 15
crawler:
  user_agent: custom-agent
  timeout_seconds: 45
database:
  provider: postgres
  dsn: postgres://crawler:pw@localhost:5432/crawler
  table: schedules
pubsub:
  provider: pubsub
  project_id: my-project
  topic_name: crawl-events
snapshot:
  provider: local
  dir: /tmp/snapshots
  prefix: raw
logging:
  development: false
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "secret", cfg.Auth.APIKey)
	require.Equal(t, 8, cfg.Scheduler.Concurrency)
	require.Equal(t, 15*time.Second, cfg.TickInterval())
	require.Equal(t, "custom-agent", cfg.Crawler.UserAgent)
	require.Equal(t, 45*time.Second, cfg.FetchTimeout())
	require.Equal(t, "postgres", cfg.Database.Provider)
	require.Equal(t, "schedules", cfg.Database.Table)
	require.Equal(t, "pubsub", cfg.PubSub.Provider)
	require.Equal(t, "crawl-events", cfg.PubSub.TopicName)
	require.Equal(t, "local", cfg.Snapshot.Provider)
	require.Equal(t, "/tmp/snapshots", cfg.Snapshot.Dir)
	require.False(t, cfg.Logging.Development)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scheduler.Concurrency = -1
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Provider = "postgres"
	cfg.Database.DSN = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Snapshot.Provider = "local"
	cfg.Snapshot.Dir = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Snapshot.Provider = "gcs"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Auth.Enabled = true
	require.Error(t, cfg.Validate())
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
