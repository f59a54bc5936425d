package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig   `mapstructure:"database"`
	YouTube   YouTubeConfig    `mapstructure:"youtube"`
	Quota     QuotaConfig      `mapstructure:"quota"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Sync      SyncConfig       `mapstructure:"sync"`
	Retry     RetryConfig      `mapstructure:"retry"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Tracker   TrackerConfig    `mapstructure:"tracker"`
	Scheduler SchedulerConfig  `mapstructure:"scheduler"`
	Playlists []PlaylistConfig `mapstructure:"playlists"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"` // sqlite file path
}

// YouTubeConfig holds YouTube Data API and OAuth settings
type YouTubeConfig struct {
	ClientSecretsFile string   `mapstructure:"client_secrets_file"`
	ClientID          string   `mapstructure:"client_id"`
	ClientSecret      string   `mapstructure:"client_secret"`
	RedirectURI       string   `mapstructure:"redirect_uri"`
	Scopes            []string `mapstructure:"scopes"`
	// Token injection from environment (for headless runs)
	AccessToken    string `mapstructure:"access_token"`
	RefreshToken   string `mapstructure:"refresh_token"`
	TokenExpiresAt string `mapstructure:"token_expires_at"`
	FeedBaseURL    string `mapstructure:"feed_base_url"`
}

// QuotaConfig describes the external daily budget
type QuotaConfig struct {
	DailyLimit int            `mapstructure:"daily_limit"`
	Timezone   string         `mapstructure:"timezone"` // zone in which the budget resets
	Costs      map[string]int `mapstructure:"costs"`
}

// CacheConfig holds metadata cache settings
type CacheConfig struct {
	DirectoryFile string        `mapstructure:"directory_file"`
	Freshness     time.Duration `mapstructure:"freshness"`
	UseFeed       bool          `mapstructure:"use_feed"`
}

// SyncConfig holds run defaults
type SyncConfig struct {
	GracePeriod      time.Duration `mapstructure:"grace_period"`
	DefaultLookback  time.Duration `mapstructure:"default_lookback"`
	PrivacyStatus    string        `mapstructure:"privacy_status"`
	ProgressInterval int           `mapstructure:"progress_interval"`
}

// RetryConfig bounds retries of single API calls
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
}

// RateLimitConfig holds request pacing
type RateLimitConfig struct {
	ReadsPerSecond  float64 `mapstructure:"reads_per_second"`
	WritesPerSecond float64 `mapstructure:"writes_per_second"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// TrackerConfig holds Google Sheets audit log settings
type TrackerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	SheetName          string `mapstructure:"sheet_name"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
}

// SchedulerConfig holds daemon settings
type SchedulerConfig struct {
	SyncCron string `mapstructure:"sync_cron"`
	Timezone string `mapstructure:"timezone"`
}

// PlaylistConfig is one named playlist definition
type PlaylistConfig struct {
	Title     string   `mapstructure:"title"`
	Channels  []string `mapstructure:"channels"`
	StartDate string   `mapstructure:"start_date"` // YYYY-MM-DD, optional
	SkipLiked bool     `mapstructure:"skip_liked"`

	// UsePlaylistWatermark starts the window at the oldest video in the playlist
	UsePlaylistWatermark bool `mapstructure:"use_playlist_watermark"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".playlist-sync"))
		}
	}

	v.SetEnvPrefix("PLAYLIST_SYNC")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("database.dsn", "PLAYLIST_SYNC_DATABASE_DSN")
	v.BindEnv("youtube.client_secrets_file", "PLAYLIST_SYNC_YOUTUBE_CLIENT_SECRETS_FILE")
	v.BindEnv("youtube.client_id", "PLAYLIST_SYNC_YOUTUBE_CLIENT_ID")
	v.BindEnv("youtube.client_secret", "PLAYLIST_SYNC_YOUTUBE_CLIENT_SECRET")
	v.BindEnv("youtube.access_token", "PLAYLIST_SYNC_YOUTUBE_ACCESS_TOKEN")
	v.BindEnv("youtube.refresh_token", "PLAYLIST_SYNC_YOUTUBE_REFRESH_TOKEN")
	v.BindEnv("quota.daily_limit", "PLAYLIST_SYNC_QUOTA_DAILY_LIMIT")
	v.BindEnv("cache.directory_file", "PLAYLIST_SYNC_CACHE_DIRECTORY_FILE")
	v.BindEnv("tracker.enabled", "PLAYLIST_SYNC_TRACKER_ENABLED")
	v.BindEnv("tracker.spreadsheet_id", "PLAYLIST_SYNC_TRACKER_SPREADSHEET_ID")
	v.BindEnv("tracker.credentials_file", "PLAYLIST_SYNC_TRACKER_CREDENTIALS_FILE")
	v.BindEnv("tracker.service_account_json", "PLAYLIST_SYNC_TRACKER_SERVICE_ACCOUNT_JSON")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "./data/playlist-sync.db")

	v.SetDefault("youtube.client_secrets_file", "credentials.json")
	v.SetDefault("youtube.redirect_uri", "http://localhost:8080/callback")
	v.SetDefault("youtube.scopes", []string{"https://www.googleapis.com/auth/youtube"})
	v.SetDefault("youtube.feed_base_url", "https://www.youtube.com/feeds/videos.xml")

	// YouTube Data API: 10,000 units per day, reset at midnight Pacific
	v.SetDefault("quota.daily_limit", 10000)
	v.SetDefault("quota.timezone", "America/Los_Angeles")
	v.SetDefault("quota.costs", map[string]int{
		"search":          100,
		"channel_info":    1,
		"list_page":       1,
		"playlist_list":   1,
		"playlist_create": 50,
		"playlist_insert": 50,
	})

	v.SetDefault("cache.directory_file", "channel_cache.json")
	v.SetDefault("cache.freshness", "168h")
	v.SetDefault("cache.use_feed", true)

	v.SetDefault("sync.grace_period", "24h")
	v.SetDefault("sync.default_lookback", "336h") // two weeks
	v.SetDefault("sync.privacy_status", "private")
	v.SetDefault("sync.progress_interval", 25)

	v.SetDefault("retry.max_attempts", 4)
	v.SetDefault("retry.initial_backoff", "1s")
	v.SetDefault("retry.max_backoff", "30s")
	v.SetDefault("retry.multiplier", 2.0)

	v.SetDefault("rate_limit.reads_per_second", 10)
	v.SetDefault("rate_limit.writes_per_second", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("tracker.enabled", false)
	v.SetDefault("tracker.sheet_name", "Commits")

	v.SetDefault("scheduler.sync_cron", "30 0 * * *") // shortly after the quota reset
	v.SetDefault("scheduler.timezone", "America/Los_Angeles")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("quota.daily_limit must be positive")
	}
	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		return fmt.Errorf("quota.timezone is invalid: %w", err)
	}
	for op, cost := range c.Quota.Costs {
		if cost < 0 {
			return fmt.Errorf("quota.costs.%s must not be negative", op)
		}
	}
	if c.Cache.DirectoryFile == "" {
		return fmt.Errorf("cache.directory_file is required")
	}
	if c.Sync.GracePeriod < 0 {
		return fmt.Errorf("sync.grace_period must not be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Tracker.Enabled && c.Tracker.SpreadsheetID == "" {
		return fmt.Errorf("tracker.spreadsheet_id is required when tracker is enabled")
	}
	for i, p := range c.Playlists {
		if p.Title == "" {
			return fmt.Errorf("playlists[%d].title is required", i)
		}
		if len(p.Channels) == 0 {
			return fmt.Errorf("playlists[%d].channels is required", i)
		}
	}
	return nil
}

// ValidateAuth checks that OAuth client credentials are available
func (c *Config) ValidateAuth() error {
	if c.YouTube.ClientID != "" && c.YouTube.ClientSecret != "" {
		return nil
	}
	if c.YouTube.ClientSecretsFile == "" {
		return fmt.Errorf("youtube.client_secrets_file or youtube.client_id/client_secret is required")
	}
	if _, err := os.Stat(c.YouTube.ClientSecretsFile); err != nil {
		return fmt.Errorf("youtube client secrets file %s not found: download OAuth credentials from the Google Cloud console", c.YouTube.ClientSecretsFile)
	}
	return nil
}

// Location returns the quota reset time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Playlist returns the named playlist definition
func (c *Config) Playlist(title string) (PlaylistConfig, bool) {
	for _, p := range c.Playlists {
		if p.Title == title {
			return p, true
		}
	}
	return PlaylistConfig{}, false
}
