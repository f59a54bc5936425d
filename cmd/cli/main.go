package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/playlist-sync/internal/agent/syncer"
	"github.com/playlist-sync/internal/app"
	"github.com/playlist-sync/internal/commit"
	"github.com/playlist-sync/internal/config"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/internal/tracker"
	"github.com/playlist-sync/pkg/logger"
)

var (
	cfgFile  string
	cfg      *config.Config
	log      *logger.Logger
	engine   *app.App
	exitCode int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "playlist-sync",
		Short: "Quota-aware YouTube playlist sync",
		Long: `Collects recent uploads from a set of channels into one of your playlists,
staying inside the daily YouTube Data API quota and resuming where it stopped.`,
		PersistentPreRunE: initializeApp,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if engine != nil {
				engine.Close()
			}
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(quotaCmd())
	rootCmd.AddCommand(queueCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(trackerCmd())

	if err := rootCmd.Execute(); err != nil {
		if engine != nil {
			engine.Close()
		}
		os.Exit(exitFailure)
	}
	os.Exit(exitCode)
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	engine, err = app.New(cfg, log)
	if err != nil {
		return err
	}

	return nil
}

// ============ SYNC COMMAND ============

func syncCmd() *cobra.Command {
	var (
		playlist         string
		start, end       string
		forceRefresh     bool
		cachedOnly       bool
		cacheHours       int
		forceNewPlaylist bool
		skipLiked        bool
		cutoff           bool
		replan           bool
		all              bool
	)

	cmd := &cobra.Command{
		Use:   "sync [channels...]",
		Short: "Add new uploads from channels to a playlist",
		Long: `Plans the uploads in the window and adds them to the playlist in publish order.
A run that hits the daily quota pauses and is resumed by the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceRefresh && cachedOnly {
				return fmt.Errorf("--force-refresh and --cached-only are mutually exclusive")
			}

			base := syncer.Options{
				Mode:             refreshMode(forceRefresh, cachedOnly),
				Freshness:        time.Duration(cacheHours) * time.Hour,
				ForceNewPlaylist: forceNewPlaylist,
				SkipLiked:        skipLiked,
				PlaylistCutoff:   cutoff,
				Replan:           replan,
			}
			loc := cfg.Location()
			var err error
			if base.Start, err = parseDate(start, loc, false); err != nil {
				return err
			}
			if base.End, err = parseDate(end, loc, true); err != nil {
				return err
			}

			jobs, err := buildJobs(cfg, base, playlist, args, all)
			if err != nil {
				return err
			}

			ctx, stop := watchInterrupt(context.Background())
			defer stop()

			s, err := engine.Syncer(ctx)
			if err != nil {
				return err
			}

			var results []*syncer.RunResult
			for _, job := range jobs {
				res, err := s.Run(ctx, job)
				if res != nil {
					printResult(res)
					results = append(results, res)
				}
				if err != nil {
					return fmt.Errorf("sync %q failed: %w", job.Playlist, err)
				}
				if res.State == commit.StatePaused || res.State == commit.StateInterrupted {
					break
				}
			}

			exitCode = exitCodeFor(results)
			return nil
		},
	}

	cmd.Flags().StringVar(&playlist, "playlist", "", "Target playlist title")
	cmd.Flags().StringVar(&start, "start", "", "Window start date (YYYY-MM-DD), overrides the watermark")
	cmd.Flags().StringVar(&end, "end", "", "Window end date (YYYY-MM-DD, inclusive)")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "Re-read every channel's uploads")
	cmd.Flags().BoolVar(&cachedOnly, "cached-only", false, "Plan from cached uploads only")
	cmd.Flags().IntVar(&cacheHours, "cache-hours", 0, "Treat cached channels older than this as stale")
	cmd.Flags().BoolVar(&forceNewPlaylist, "force-new-playlist", false, "Create a new playlist even if one has this title")
	cmd.Flags().BoolVar(&skipLiked, "skip-liked", false, "Skip videos you already liked")
	cmd.Flags().BoolVar(&cutoff, "use-playlist-watermark", false, "Skip uploads older than the oldest video already in the playlist")
	cmd.Flags().BoolVar(&replan, "replan", false, "Drop a pending queue and plan again")
	cmd.Flags().BoolVar(&all, "all", false, "Sync every configured playlist")

	return cmd
}

// watchInterrupt turns the first SIGINT into a cooperative stop request and
// the second into an immediate exit
func watchInterrupt(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigChan:
				if engine.Interrupt.Request() {
					fmt.Fprintln(os.Stderr, "\nStopping now.")
					os.Exit(exitInterrupted)
				}
				fmt.Fprintln(os.Stderr, "\nStopping after the current step, press Ctrl-C again to quit immediately...")
			}
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func printResult(res *syncer.RunResult) {
	fmt.Printf("\n=== Sync: %s ===\n\n", res.Playlist)
	if res.PlaylistID != "" {
		fmt.Printf("Playlist:   https://www.youtube.com/playlist?list=%s\n", res.PlaylistID)
	}
	if res.Created {
		fmt.Println("            (created)")
	}
	if res.Resumed {
		fmt.Printf("Resumed:    run %s\n", res.RunID)
	} else if !res.Window.Start.IsZero() {
		fmt.Printf("Window:     %s .. %s\n", res.Window.Start.Format(time.RFC3339), res.Window.End.Format(time.RFC3339))
	}
	fmt.Printf("State:      %s\n", res.State)
	fmt.Printf("Planned:    %d\n", res.Planned)
	fmt.Printf("Committed:  %d\n", res.Committed)
	if res.Duplicates > 0 {
		fmt.Printf("Duplicates: %d\n", res.Duplicates)
	}
	if res.Remaining > 0 {
		fmt.Printf("Remaining:  %d\n", res.Remaining)
	}
	fmt.Printf("Quota used: %d units\n", res.QuotaUsed)
	fmt.Printf("Duration:   %s\n", res.Duration.Round(time.Second))

	if len(res.Failed) > 0 {
		fmt.Printf("\nFailed (%d):\n", len(res.Failed))
		for _, f := range res.Failed {
			fmt.Printf("  - %s %s: %s\n", f.VideoID, truncateStr(f.Title, 50), f.Reason)
		}
	}
	if len(res.Skipped) > 0 {
		fmt.Printf("\nSkipped channels (%d):\n", len(res.Skipped))
		for _, sk := range res.Skipped {
			fmt.Printf("  - %s: %s\n", sk.Channel, sk.Reason)
		}
	}

	switch res.State {
	case commit.StatePaused:
		fmt.Printf("\nDaily quota reached. Run again after the quota resets (%s).\n",
			engine.Ledger.NextReset().Format(time.RFC1123))
	case commit.StateInterrupted:
		fmt.Println("\nInterrupted. Run again to resume.")
	}
}

// ============ CACHE COMMANDS ============

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the local caches",
	}

	cmd.AddCommand(cacheShowCmd())
	cmd.AddCommand(cacheClearCmd())
	cmd.AddCommand(cacheClearChannelsCmd())
	cmd.AddCommand(cacheRepopulateChannelsCmd())
	return cmd
}

func cacheShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show cached channels and the channel directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			entries, err := engine.VideoCache(nil).Entries(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Cached Channels (%d) ===\n\n", len(entries))
			now := time.Now()
			for _, e := range entries {
				c := e.Cache
				age := "never refreshed"
				if d := c.Age(now); d >= 0 {
					age = formatDuration(d) + " ago"
				}
				state := "stale"
				if e.Fresh {
					state = "fresh"
				}
				if c.IsPartial() {
					state = fmt.Sprintf("partial (%s, %d pages)", c.PendingKind, c.PagesFetched)
				}
				fmt.Printf("%s | %s\n", c.ChannelID, c.Title)
				fmt.Printf("    Videos: %d | Refreshed: %s | %s\n\n", e.Videos, age, state)
			}

			dir, err := engine.Directory(nil).Entries(ctx)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(dir))
			for name := range dir {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Printf("=== Channel Directory (%d) ===\n\n", len(dir))
			for _, name := range names {
				fmt.Printf("  %s -> %s\n", name, dir[name])
			}
			return nil
		},
	}
}

func cacheClearCmd() *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			vc := engine.VideoCache(nil)

			if channel != "" {
				key, err := engine.Directory(nil).Resolve(ctx, channel)
				if err != nil {
					return fmt.Errorf("channel %q is not known locally: %w", channel, err)
				}
				if err := vc.ClearChannel(ctx, key); err != nil {
					return err
				}
				fmt.Printf("Cleared cached uploads of %s\n", key)
				return nil
			}

			if err := vc.Clear(ctx); err != nil {
				return err
			}
			fmt.Println("Cleared all cached uploads")
			return nil
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Only clear this channel (id, URL or known name)")
	return cmd
}

func cacheClearChannelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-channels",
		Short: "Forget every resolved channel identifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := engine.Directory(nil).Clear(context.Background()); err != nil {
				return err
			}
			fmt.Println("Channel directory cleared")
			return nil
		},
	}
}

func cacheRepopulateChannelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repopulate-channels",
		Short: "Rebuild the channel directory from cached channel titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := engine.Directory(nil).Repopulate(context.Background(), engine.Repo)
			if err != nil {
				return err
			}
			fmt.Printf("Added %d channel titles to the directory\n", n)
			return nil
		},
	}
}

// ============ QUOTA COMMAND ============

func quotaCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show today's quota usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			snap, err := engine.Ledger.Usage(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Quota (%s, %s) ===\n\n", snap.Day, cfg.Quota.Timezone)
			fmt.Printf("Used:      %d / %d\n", snap.Used, snap.Limit)
			fmt.Printf("Remaining: %d\n", snap.Remaining)
			if snap.Exhausted {
				fmt.Println("Exhausted: yes (reported by the API)")
			}
			fmt.Printf("Resets:    %s\n", engine.Ledger.NextReset().Format(time.RFC1123))

			history, err := engine.Repo.ListQuotaUsage(ctx, days)
			if err != nil {
				return err
			}
			if len(history) > 1 {
				fmt.Println("\nHistory:")
				for _, u := range history {
					fmt.Printf("  %s  %5d\n", u.Day, u.Units)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Days of history to show")
	return cmd
}

// ============ QUEUE COMMANDS ============

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect pending commit queues",
	}

	cmd.AddCommand(queueShowCmd())
	cmd.AddCommand(queueDropCmd())
	return cmd
}

func queueShowCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show pending queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			queues, err := engine.Repo.ListQueues(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Pending Queues (%d) ===\n\n", len(queues))
			for _, q := range queues {
				remaining := q.Remaining()
				fmt.Printf("%s | %s | %d/%d done\n", q.PlaylistTitle, q.Status, q.Cursor, len(q.Items))
				fmt.Printf("    Run: %s | Planned: %s\n", q.RunID, q.PlannedAt.Format(time.RFC1123))
				for i, item := range remaining {
					if i == limit {
						fmt.Printf("    ... %d more\n", len(remaining)-limit)
						break
					}
					fmt.Printf("    %s  %s  %s\n", item.PublishedAt.Format("2006-01-02"), item.VideoID, truncateStr(item.Title, 60))
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Items to list per queue")
	return cmd
}

func queueDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <playlist>",
		Short: "Discard a pending queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := engine.Repo.DeleteQueue(context.Background(), args[0])
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Printf("No pending queue for %q\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Dropped pending queue for %q\n", args[0])
			return nil
		},
	}
}

// ============ STATUS COMMAND ============

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last successful sync of each playlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := engine.Tracker.History(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Playlists (%d) ===\n\n", len(states))
			for _, s := range states {
				fmt.Printf("%s | %s\n", s.Title, s.PlaylistID)
				fmt.Printf("    Last success: %s (%s ago)\n",
					s.LastSuccessAt.Format(time.RFC1123), formatDuration(time.Since(s.LastSuccessAt)))
				fmt.Printf("    Items committed: %d | Channels: %d\n\n", s.ItemsCommitted, len(s.Channels))
			}
			return nil
		},
	}
}

// ============ AUTH COMMANDS ============

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "YouTube OAuth management",
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authStatusCmd())
	cmd.AddCommand(authLogoutCmd())
	return cmd
}

func authLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Start the YouTube OAuth login flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			oauthManager, err := engine.OAuth()
			if err != nil {
				return err
			}

			err = oauthManager.StartOAuthServer(ctx, func(authURL string) {
				fmt.Printf("\nPlease open this URL in your browser:\n%s\n", authURL)
			})
			if err != nil {
				return fmt.Errorf("OAuth failed: %w", err)
			}

			fmt.Println("\nAuthentication successful!")
			return nil
		},
	}
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check OAuth token status",
		RunE: func(cmd *cobra.Command, args []string) error {
			oauthManager, err := engine.OAuth()
			if err != nil {
				return err
			}

			valid, expiresAt, err := oauthManager.GetTokenStatus(context.Background())
			if err != nil {
				fmt.Println("Status: Not authenticated")
				fmt.Println("Run 'playlist-sync auth login' to authenticate")
				return nil
			}

			fmt.Printf("Status:     %s\n", map[bool]string{true: "Valid", false: "Expired"}[valid])
			if !expiresAt.IsZero() {
				fmt.Printf("Expires at: %s\n", expiresAt.Format(time.RFC1123))
			}

			if !valid {
				fmt.Println("\nToken expired. Run 'playlist-sync auth login' to re-authenticate")
			}
			return nil
		},
	}
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			oauthManager, err := engine.OAuth()
			if err != nil {
				return err
			}
			if err := oauthManager.Logout(context.Background()); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

// ============ TRACKER COMMANDS ============

func trackerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Google Sheets audit log management",
	}

	cmd.AddCommand(trackerInitCmd())
	cmd.AddCommand(trackerListCmd())
	return cmd
}

func openTracker(ctx context.Context) (*tracker.SheetsTracker, error) {
	if !cfg.Tracker.Enabled {
		return nil, fmt.Errorf("tracker is not enabled in config - set tracker.enabled=true and tracker.spreadsheet_id")
	}
	t, err := engine.AuditTracker(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}
	return t, nil
}

func trackerInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize Google Sheet with headers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			t, err := openTracker(ctx)
			if err != nil {
				return err
			}
			if err := t.InitializeSheet(ctx); err != nil {
				return fmt.Errorf("failed to initialize sheet: %w", err)
			}

			fmt.Println("Google Sheet initialized successfully!")
			fmt.Printf("Spreadsheet ID: %s\n", cfg.Tracker.SpreadsheetID)
			fmt.Printf("Sheet Name: %s\n", cfg.Tracker.SheetName)
			fmt.Println("\nColumns created:")
			for i, col := range tracker.SheetColumns {
				fmt.Printf("  %d. %s\n", i+1, col)
			}
			return nil
		},
	}
}

func trackerListCmd() *cobra.Command {
	var playlist string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List committed videos recorded in the sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			t, err := openTracker(ctx)
			if err != nil {
				return err
			}
			records, err := t.ListCommits(ctx)
			if err != nil {
				return fmt.Errorf("failed to get commits: %w", err)
			}

			var shown []commit.Record
			for _, r := range records {
				if playlist == "" || strings.EqualFold(r.PlaylistTitle, playlist) {
					shown = append(shown, r)
				}
			}

			fmt.Printf("\n=== Committed Videos (%d) ===\n\n", len(shown))
			for _, r := range shown {
				fmt.Printf("%s | %s | %s\n", r.CommittedAt.Format("2006-01-02 15:04"), r.PlaylistTitle, truncateStr(r.VideoTitle, 60))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&playlist, "playlist", "", "Only show this playlist")
	return cmd
}
