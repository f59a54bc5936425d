package main

import (
	"fmt"
	"time"

	"github.com/playlist-sync/internal/agent/syncer"
	"github.com/playlist-sync/internal/commit"
	"github.com/playlist-sync/internal/config"
	"github.com/playlist-sync/internal/videocache"
)

const (
	exitCompleted   = 0
	exitFailure     = 1
	exitPaused      = 2
	exitInterrupted = 3
)

const dateLayout = "2006-01-02"

func refreshMode(forceRefresh, cachedOnly bool) videocache.Mode {
	switch {
	case forceRefresh:
		return videocache.RefreshFull
	case cachedOnly:
		return videocache.RefreshNever
	default:
		return videocache.RefreshIncremental
	}
}

// parseDate reads a calendar date in loc. An end date covers the whole day
// but never reaches past now.
func parseDate(s string, loc *time.Location, end bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	if !end {
		return t, nil
	}
	t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	if now := time.Now(); t.After(now) {
		t = now
	}
	return t, nil
}

// buildJobs expands the command line into one request per playlist
func buildJobs(cfg *config.Config, base syncer.Options, playlist string, channels []string, all bool) ([]syncer.Options, error) {
	if all {
		if playlist != "" || len(channels) > 0 {
			return nil, fmt.Errorf("--all cannot be combined with --playlist or channels")
		}
		if len(cfg.Playlists) == 0 {
			return nil, fmt.Errorf("no playlists configured")
		}
		jobs := make([]syncer.Options, 0, len(cfg.Playlists))
		for _, p := range cfg.Playlists {
			job, err := fromConfig(base, p, cfg.Location())
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
		}
		return jobs, nil
	}

	if playlist == "" {
		return nil, fmt.Errorf("--playlist is required (or use --all)")
	}

	if p, ok := cfg.Playlist(playlist); ok {
		job, err := fromConfig(base, p, cfg.Location())
		if err != nil {
			return nil, err
		}
		if len(channels) > 0 {
			job.Channels = channels
		}
		return []syncer.Options{job}, nil
	}

	if len(channels) == 0 {
		return nil, fmt.Errorf("playlist %q is not configured; list its channels as arguments", playlist)
	}
	job := base
	job.Playlist = playlist
	job.Channels = channels
	return []syncer.Options{job}, nil
}

func fromConfig(base syncer.Options, p config.PlaylistConfig, loc *time.Location) (syncer.Options, error) {
	job := base
	job.Playlist = p.Title
	job.Channels = p.Channels
	job.SkipLiked = base.SkipLiked || p.SkipLiked
	job.PlaylistCutoff = base.PlaylistCutoff || p.UsePlaylistWatermark

	start, err := parseDate(p.StartDate, loc, false)
	if err != nil {
		return syncer.Options{}, fmt.Errorf("playlist %q start_date: %w", p.Title, err)
	}
	job.DefaultStart = start
	return job, nil
}

// exitCodeFor picks the most severe outcome of the run
func exitCodeFor(results []*syncer.RunResult) int {
	code := exitCompleted
	for _, r := range results {
		switch {
		case r.State == commit.StateInterrupted:
			return exitInterrupted
		case r.State == commit.StatePaused, r.BudgetLimited:
			code = exitPaused
		}
	}
	return code
}

func truncateStr(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
