package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlist-sync/internal/agent/syncer"
	"github.com/playlist-sync/internal/commit"
	"github.com/playlist-sync/internal/config"
	"github.com/playlist-sync/internal/videocache"
)

func TestRefreshMode(t *testing.T) {
	assert.Equal(t, videocache.RefreshIncremental, refreshMode(false, false))
	assert.Equal(t, videocache.RefreshFull, refreshMode(true, false))
	assert.Equal(t, videocache.RefreshNever, refreshMode(false, true))
}

func TestParseDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	start, err := parseDate("2024-03-01", loc, false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, loc), start)

	end, err := parseDate("2024-03-01", loc, true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, loc).Add(-time.Nanosecond), end)

	future, err := parseDate(time.Now().AddDate(1, 0, 0).Format(dateLayout), loc, true)
	require.NoError(t, err)
	assert.False(t, future.After(time.Now()))

	zero, err := parseDate("", loc, true)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = parseDate("03/01/2024", loc, false)
	assert.Error(t, err)
}

func TestBuildJobs(t *testing.T) {
	cfg := &config.Config{
		Quota: config.QuotaConfig{Timezone: "UTC"},
		Playlists: []config.PlaylistConfig{
			{Title: "Weekly", Channels: []string{"@alpha"}, StartDate: "2024-01-01", SkipLiked: true},
			{Title: "Music", Channels: []string{"@beta", "@gamma"}, UsePlaylistWatermark: true},
		},
	}
	base := syncer.Options{Mode: videocache.RefreshIncremental}

	t.Run("all configured playlists", func(t *testing.T) {
		jobs, err := buildJobs(cfg, base, "", nil, true)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, "Weekly", jobs[0].Playlist)
		assert.True(t, jobs[0].SkipLiked)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), jobs[0].DefaultStart)
		assert.True(t, jobs[0].Start.IsZero())
		assert.Equal(t, []string{"@beta", "@gamma"}, jobs[1].Channels)
		assert.False(t, jobs[1].SkipLiked)
		assert.False(t, jobs[0].PlaylistCutoff)
		assert.True(t, jobs[1].PlaylistCutoff)
	})

	t.Run("configured playlist with channel override", func(t *testing.T) {
		jobs, err := buildJobs(cfg, base, "Music", []string{"@delta"}, false)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, []string{"@delta"}, jobs[0].Channels)
	})

	t.Run("ad hoc playlist", func(t *testing.T) {
		jobs, err := buildJobs(cfg, base, "Other", []string{"@x"}, false)
		require.NoError(t, err)
		assert.Equal(t, "Other", jobs[0].Playlist)
		assert.Equal(t, videocache.RefreshIncremental, jobs[0].Mode)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := buildJobs(cfg, base, "", nil, false)
		assert.Error(t, err)
		_, err = buildJobs(cfg, base, "Other", nil, false)
		assert.Error(t, err)
		_, err = buildJobs(cfg, base, "Weekly", nil, true)
		assert.Error(t, err)
	})
}

func TestExitCodeFor(t *testing.T) {
	res := func(s commit.State) *syncer.RunResult { return &syncer.RunResult{State: s} }

	assert.Equal(t, exitCompleted, exitCodeFor(nil))
	assert.Equal(t, exitCompleted, exitCodeFor([]*syncer.RunResult{res(commit.StateCompleted)}))
	assert.Equal(t, exitPaused, exitCodeFor([]*syncer.RunResult{res(commit.StateCompleted), res(commit.StatePaused)}))
	assert.Equal(t, exitInterrupted, exitCodeFor([]*syncer.RunResult{res(commit.StatePaused), res(commit.StateInterrupted)}))

	limited := res(commit.StateCompleted)
	limited.BudgetLimited = true
	assert.Equal(t, exitPaused, exitCodeFor([]*syncer.RunResult{limited}), "a run that left work for tomorrow")
}

func TestTruncateStr(t *testing.T) {
	assert.Equal(t, "short", truncateStr("short", 10))
	assert.Equal(t, "abcdefg...", truncateStr("abcdefghijklmnop", 10))
}
