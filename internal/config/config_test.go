package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, 10000, cfg.Quota.DailyLimit)
	assert.Equal(t, "America/Los_Angeles", cfg.Quota.Timezone)
	assert.Equal(t, 100, cfg.Quota.Costs["search"])
	assert.Equal(t, 50, cfg.Quota.Costs["playlist_insert"])
	assert.Equal(t, 168*time.Hour, cfg.Cache.Freshness)
	assert.Equal(t, 24*time.Hour, cfg.Sync.GracePeriod)
	assert.Equal(t, 14*24*time.Hour, cfg.Sync.DefaultLookback)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Playlists(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
playlists:
  - title: Weekly Tech
    channels: ["@veritasium", "UCBJycsmduvYEL83R_U4JriQ"]
    skip_liked: true
    use_playlist_watermark: true
cache:
  freshness: 12h
`))
	require.NoError(t, err)

	require.Len(t, cfg.Playlists, 1)
	p, ok := cfg.Playlist("Weekly Tech")
	require.True(t, ok)
	assert.Equal(t, []string{"@veritasium", "UCBJycsmduvYEL83R_U4JriQ"}, p.Channels)
	assert.True(t, p.SkipLiked)
	assert.True(t, p.UsePlaylistWatermark)
	assert.Equal(t, 12*time.Hour, cfg.Cache.Freshness)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, "quota:\n  daily_limit: 0\n"))
	require.NoError(t, err)
	assert.EqualError(t, cfg.Validate(), "quota.daily_limit must be positive")

	cfg, err = Load(writeConfig(t, "playlists:\n  - title: x\n"))
	require.NoError(t, err)
	assert.EqualError(t, cfg.Validate(), "playlists[0].channels is required")

	cfg, err = Load(writeConfig(t, "tracker:\n  enabled: true\n"))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}
