package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./data/commission.db", cfg.Database.SQLitePath)
	assert.Equal(t, []string{"friday", "saturday"}, cfg.Calendar.RestDays)
	assert.Equal(t, "plan-2025-affiliate", cfg.Plan.ID)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "0 5 0 1 * *", cfg.Schedule.CloseCron)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: A YAML file and an env override for the port
	path := writeConfig(t, `
server:
  port: 9000
calendar:
  time_zone: UTC
  rest_days: [saturday, sunday]
redis:
  addr: localhost:6379
  ttl: 30s
`)
	t.Setenv("COMMISSION_PORT", "9100")
	t.Setenv("COMMISSION_PLAN", "plan-2025")

	// WHEN: Loading
	cfg, err := Load(path)
	require.NoError(t, err)

	// THEN: The environment wins over the file
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "plan-2025", cfg.Plan.ID)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.True(t, cfg.RedisEnabled())
	require.NoError(t, cfg.Validate())

	week, err := cfg.WorkWeek()
	require.NoError(t, err)
	assert.Equal(t, [2]time.Weekday{time.Saturday, time.Sunday}, week.RestDays)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoad_BadPortEnv(t *testing.T) {
	t.Setenv("COMMISSION_PORT", "eighty")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate_RejectsBadCalendar(t *testing.T) {
	cfg, err := Load(writeConfig(t, "calendar:\n  time_zone: UTC\n  rest_days: [friday]\n"))
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "exactly 2")

	cfg.Calendar.RestDays = []string{"friday", "caturday"}
	assert.ErrorContains(t, cfg.Validate(), "caturday")

	cfg.Calendar.RestDays = []string{"friday", "saturday"}
	cfg.Calendar.TimeZone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}
