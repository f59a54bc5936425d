// Package app builds the sync engine from configuration. The CLI and the
// scheduler share it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/playlist-sync/internal/agent/syncer"
	"github.com/playlist-sync/internal/commit"
	"github.com/playlist-sync/internal/config"
	"github.com/playlist-sync/internal/directory"
	"github.com/playlist-sync/internal/planner"
	"github.com/playlist-sync/internal/quota"
	"github.com/playlist-sync/internal/retry"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/internal/storage/jsonfile"
	"github.com/playlist-sync/internal/storage/sqlite"
	"github.com/playlist-sync/internal/tracker"
	"github.com/playlist-sync/internal/videocache"
	"github.com/playlist-sync/internal/watermark"
	"github.com/playlist-sync/internal/youtube"
	"github.com/playlist-sync/pkg/logger"
	"github.com/playlist-sync/pkg/ratelimit"
)

// App holds the long-lived pieces shared by every command
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Repo      storage.Repository
	Channels  storage.DirectoryStore
	Ledger    *quota.Ledger
	Tracker   *watermark.Tracker
	Interrupt *commit.Interrupt
	Limiter   *ratelimit.MultiLimiter

	oauth *youtube.OAuthManager
}

// New opens the store and builds the offline components
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repo.Migrate(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewWithRepository(cfg, repo, log), nil
}

// NewWithRepository builds an App over an already migrated store
func NewWithRepository(cfg *config.Config, repo storage.Repository, log *logger.Logger) *App {
	ledger := quota.NewLedger(repo, quota.NewConfig(cfg.Quota.DailyLimit, cfg.Quota.Costs, cfg.Location()), log)

	return &App{
		Config:    cfg,
		Log:       log,
		Repo:      repo,
		Channels:  jsonfile.NewDirectory(cfg.Cache.DirectoryFile, log),
		Ledger:    ledger,
		Tracker:   watermark.New(repo, cfg.Sync.GracePeriod, log),
		Interrupt: commit.NewInterrupt(),
		Limiter:   ratelimit.New(cfg.RateLimit.ReadsPerSecond, cfg.RateLimit.WritesPerSecond),
	}
}

// Close releases the store
func (a *App) Close() error {
	return a.Repo.Close()
}

// RetryConfig converts the configured retry policy
func (a *App) RetryConfig() retry.Config {
	rc := retry.DefaultConfig()
	r := a.Config.Retry
	if r.MaxAttempts > 0 {
		rc.MaxAttempts = r.MaxAttempts
	}
	if r.InitialBackoff > 0 {
		rc.InitialBackoff = r.InitialBackoff
	}
	if r.MaxBackoff > 0 {
		rc.MaxBackoff = r.MaxBackoff
	}
	if r.Multiplier >= 1 {
		rc.Multiplier = r.Multiplier
	}
	rc.Notify = func(err error, delay time.Duration) {
		a.Log.Warn().Err(err).Dur("delay", delay).Msg("Retrying API call")
	}
	return rc
}

// OAuth returns the OAuth manager, creating it on first use
func (a *App) OAuth() (*youtube.OAuthManager, error) {
	if a.oauth != nil {
		return a.oauth, nil
	}
	if err := a.Config.ValidateAuth(); err != nil {
		return nil, err
	}
	m, err := youtube.NewOAuthManager(a.Config.YouTube, a.Repo, a.Log)
	if err != nil {
		return nil, err
	}
	a.oauth = m
	return m, nil
}

// Client returns an authenticated API client
func (a *App) Client(ctx context.Context) (*youtube.Client, error) {
	m, err := a.OAuth()
	if err != nil {
		return nil, err
	}
	return youtube.NewClient(ctx, m, a.Limiter, a.Log)
}

// VideoCache builds the metadata cache. remote may be nil for offline use.
func (a *App) VideoCache(remote videocache.Remote) *videocache.Cache {
	c := videocache.New(a.Repo, remote, a.Ledger, videocache.Config{
		Freshness: a.Config.Cache.Freshness,
		UseFeed:   a.Config.Cache.UseFeed,
		Retry:     a.RetryConfig(),
	}, a.Log)
	if a.Config.Cache.UseFeed {
		c.SetFeed(youtube.NewFeedReader(a.Config.YouTube.FeedBaseURL, nil, a.Limiter, a.Log))
	}
	c.SetInterrupt(a.Interrupt)
	return c
}

// Directory builds the channel directory. lookup may be nil for offline use.
func (a *App) Directory(lookup directory.Lookup) *directory.Directory {
	return directory.New(a.Channels, lookup, a.Ledger, a.RetryConfig(), a.Log)
}

// AuditTracker returns the Sheets recorder, or nil when it is disabled
func (a *App) AuditTracker(ctx context.Context) (*tracker.SheetsTracker, error) {
	return tracker.NewSheetsTracker(ctx, a.Config.Tracker, a.Log)
}

// Syncer wires a full sync engine around an authenticated client
func (a *App) Syncer(ctx context.Context) (*syncer.Syncer, error) {
	client, err := a.Client(ctx)
	if err != nil {
		return nil, err
	}
	return a.SyncerWith(ctx, client)
}

// SyncerWith wires a sync engine around client
func (a *App) SyncerWith(ctx context.Context, client *youtube.Client) (*syncer.Syncer, error) {
	loop := commit.New(a.Repo, client, a.Ledger, a.Tracker, commit.Config{
		Retry:            a.RetryConfig(),
		ProgressInterval: a.Config.Sync.ProgressInterval,
	}, a.Log)
	loop.SetInterrupt(a.Interrupt)

	audit, err := a.AuditTracker(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}
	if audit != nil {
		loop.SetRecorder(audit)
	}

	s := syncer.New(
		a.Repo,
		client,
		a.Directory(client),
		planner.New(a.VideoCache(client), a.Log),
		loop,
		a.Ledger,
		a.Tracker,
		syncer.Config{
			DefaultLookback: a.Config.Sync.DefaultLookback,
			PrivacyStatus:   a.Config.Sync.PrivacyStatus,
			Retry:           a.RetryConfig(),
		},
		a.Log,
	)
	s.SetInterrupt(a.Interrupt)
	return s, nil
}
