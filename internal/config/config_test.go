package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
editor:
  do_not_fix_alpha: true
  alpha_format: legacy
brush:
  radius: 40
server:
  http_port: 9100
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Editor.DoNotFixAlpha)
	assert.True(t, cfg.Editor.BigAlpha, "не заданное в файле значение остаётся по умолчанию")
	assert.Equal(t, "legacy", cfg.Editor.AlphaFormat)
	assert.Equal(t, 40.0, cfg.Brush.Radius)
	assert.Equal(t, 0.5, cfg.Brush.Hardness)
	assert.Equal(t, 9100, cfg.Server.GetHTTPPort())
}

func TestLoadWithoutPath(t *testing.T) {
	t.Setenv("TERRAIN_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestHTTPPortFallback(t *testing.T) {
	var s ServerConfig

	t.Setenv("TERRAIN_HTTP_PORT", "")
	assert.Equal(t, 8090, s.GetHTTPPort())

	t.Setenv("TERRAIN_HTTP_PORT", "7000")
	assert.Equal(t, 7000, s.GetHTTPPort())

	t.Setenv("TERRAIN_HTTP_PORT", "bogus")
	assert.Equal(t, 8090, s.GetHTTPPort())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadCacheAndTracing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache:
  redis_url: redis://localhost:6379
  default_ttl: 2m
  nats_url: nats://localhost:4222
tracing:
  endpoint: localhost:4318
  insecure: true
server:
  jwt_secret: c2VjcmV0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis://localhost:6379", cfg.Cache.RedisURL)
	assert.Equal(t, 2*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, "nats://localhost:4222", cfg.Cache.NATSURL)
	assert.Equal(t, "localhost:4318", cfg.Tracing.Endpoint)
	assert.True(t, cfg.Tracing.Insecure)
	assert.Equal(t, "c2VjcmV0", cfg.Server.GetJWTSecret())
}

func TestJWTSecretFromEnv(t *testing.T) {
	var s ServerConfig
	t.Setenv("TERRAIN_JWT_SECRET", "ZW52")
	assert.Equal(t, "ZW52", s.GetJWTSecret())

	s.JWTSecret = "Y2Zn"
	assert.Equal(t, "Y2Zn", s.GetJWTSecret())
}
