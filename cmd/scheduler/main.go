package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/playlist-sync/internal/agent/syncer"
	"github.com/playlist-sync/internal/app"
	"github.com/playlist-sync/internal/commit"
	"github.com/playlist-sync/internal/config"
	"github.com/playlist-sync/internal/videocache"
	"github.com/playlist-sync/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	engine  *app.App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "playlist-syncd",
		Short: "Background scheduler for playlist sync",
		Long: `Runs the configured playlist syncs on a schedule. A run paused by the daily
quota is resumed by the next tick after the quota resets.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(cfg.Playlists) == 0 {
		return fmt.Errorf("no playlists configured")
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Int("playlists", len(cfg.Playlists)).Msg("Starting playlist sync scheduler")

	engine, err = app.New(cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	jobs, err := scheduledJobs(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := engine.Syncer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	// Start health check server
	go startHealthServer()

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	cl := cronLogger{log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl)),
	)

	_, err = c.AddFunc(cfg.Scheduler.SyncCron, func() {
		runJobs(ctx, s, jobs)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	log.Info().
		Str("cron", cfg.Scheduler.SyncCron).
		Str("timezone", loc.String()).
		Msg("Sync job scheduled")

	// Start scheduler
	c.Start()
	log.Info().Msg("Scheduler started")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down scheduler, waiting for the running sync to reach a safe point")
	engine.Interrupt.Request()
	<-c.Stop().Done()

	return nil
}

// scheduledJobs turns the configured playlists into resume-mode requests
func scheduledJobs(cfg *config.Config) ([]syncer.Options, error) {
	jobs := make([]syncer.Options, 0, len(cfg.Playlists))
	for _, p := range cfg.Playlists {
		job := syncer.Options{
			Playlist:       p.Title,
			Channels:       p.Channels,
			Mode:           videocache.RefreshIncremental,
			SkipLiked:      p.SkipLiked,
			PlaylistCutoff: p.UsePlaylistWatermark,
		}
		if p.StartDate != "" {
			start, err := time.ParseInLocation("2006-01-02", p.StartDate, cfg.Location())
			if err != nil {
				return nil, fmt.Errorf("playlist %q start_date: %w", p.Title, err)
			}
			job.DefaultStart = start
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func runJobs(ctx context.Context, s *syncer.Syncer, jobs []syncer.Options) {
	log.Info().Int("playlists", len(jobs)).Msg("Running scheduled sync")

	for _, job := range jobs {
		if engine.Interrupt.Requested() {
			return
		}

		res, err := s.Run(ctx, job)
		if err != nil {
			log.Error().Err(err).Str("playlist", job.Playlist).Msg("Scheduled sync failed")
			continue
		}

		log.Info().
			Str("playlist", res.Playlist).
			Str("state", string(res.State)).
			Int("planned", res.Planned).
			Int("committed", res.Committed).
			Int("failed", len(res.Failed)).
			Int("remaining", res.Remaining).
			Int("quota_used", res.QuotaUsed).
			Dur("duration", res.Duration).
			Msg("Scheduled sync completed")

		if res.State == commit.StatePaused {
			log.Warn().
				Time("next_reset", engine.Ledger.NextReset()).
				Msg("Daily quota reached, remaining playlists wait for the next tick")
			return
		}
	}
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// startHealthServer serves liveness and today's quota usage
func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	http.HandleFunc("/quota", func(w http.ResponseWriter, r *http.Request) {
		snap, err := engine.Ledger.Usage(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"day":        snap.Day,
			"used":       snap.Used,
			"limit":      snap.Limit,
			"remaining":  snap.Remaining,
			"exhausted":  snap.Exhausted,
			"next_reset": engine.Ledger.NextReset(),
		})
	})

	log.Info().Str("port", port).Msg("Health check server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}
