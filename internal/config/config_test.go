package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no real config file
// is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("CONFIG_ENV", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MONGO_URI", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 5050, cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "mongo", cfg.Store)
	assert.Equal(t, "farmcontrol", cfg.MongoDatabase)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 5*time.Second, cfg.OpTimeout)
	assert.Equal(t, int64(100_000_000), cfg.ReadLimit)
	assert.True(t, cfg.ClearHostsOnStart)
	assert.Equal(t, "drop", cfg.Backpressure)
	assert.Equal(t, 3, cfg.MongoMaxRetry)
	assert.Equal(t, 2*time.Second, cfg.MongoRetryDelay)
	assert.Equal(t, uint64(0), cfg.MongoMaxPoolSize)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := []byte("port: 6000\nstore: memory\njwt_secret: from-file\nop_timeout: 2s\nbackpressure: kick\nmongo_retry_delay: 500ms\nmongo_max_pool_size: 20\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("MONGO_URI", "mongodb://db:27017")

	cfg, err := Load([]string{"--env", "test", "--port", "7000"})
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port, "flag beats file")
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, "from-env", cfg.JWTSecret, "env beats file")
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, 2*time.Second, cfg.OpTimeout)
	assert.Equal(t, "kick", cfg.Backpressure)
	assert.Equal(t, 500*time.Millisecond, cfg.MongoRetryDelay)
	assert.Equal(t, uint64(20), cfg.MongoMaxPoolSize)
}

func TestLoad_RequiresSecret(t *testing.T) {
	inTempDir(t)
	t.Setenv("CONFIG_ENV", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{
		Port: 5050, JWTSecret: "x", Store: "memory", Backpressure: "drop",
		PingPeriod: time.Second, PongWait: 2 * time.Second,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Store = "sqlite"
	assert.Error(t, bad.Validate())

	bad = base
	bad.PongWait = bad.PingPeriod
	assert.Error(t, bad.Validate())

	bad = base
	bad.Backpressure = "block"
	assert.Error(t, bad.Validate())
}
