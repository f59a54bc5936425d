package models

import (
	"time"
)

// Video is one item of a channel's upload list
type Video struct {
	ChannelID    ChannelKey `gorm:"primaryKey;size:64" json:"channel_id"`
	ID           string     `gorm:"primaryKey;size:32" json:"id"`
	Seq          int        `gorm:"index" json:"seq"` // fetch order within the channel
	Title        string     `json:"title"`
	ChannelTitle string     `json:"channel_title"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	PublishedAt  time.Time  `gorm:"index" json:"published_at"`
	SeenRun      string     `gorm:"size:64" json:"-"` // last full refresh that listed this video
	FetchedAt    time.Time  `gorm:"autoCreateTime" json:"fetched_at"`
}

// Valid reports whether the record carries the fields planning relies on
func (v *Video) Valid() bool {
	return v.ID != "" && v.ChannelID != "" && !v.PublishedAt.IsZero()
}

// URL returns the watch URL
func (v *Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// CacheStatus is the state of a channel's cached upload list
type CacheStatus string

const (
	CacheComplete CacheStatus = "complete"
	CachePartial  CacheStatus = "partial"
)

// RefreshKind distinguishes replace-style and append-style refreshes
type RefreshKind string

const (
	RefreshKindFull        RefreshKind = "full"
	RefreshKindIncremental RefreshKind = "incremental"
)

// ChannelCache is the per-channel cache header. The items live in Video rows.
type ChannelCache struct {
	ChannelID         ChannelKey  `gorm:"primaryKey;size:64" json:"channel_id"`
	Title             string      `json:"title"`
	UploadsPlaylistID string      `json:"uploads_playlist_id"`
	Status            CacheStatus `gorm:"default:'complete'" json:"status"`
	// RefreshedAt is the watermark: the list is known complete up to this time
	RefreshedAt *time.Time `json:"refreshed_at"`

	// Paging state of an unfinished refresh
	PendingKind  RefreshKind `json:"pending_kind,omitempty"`
	PendingRun   string      `json:"pending_run,omitempty"`
	PendingToken string      `json:"pending_token,omitempty"`
	PendingSince *time.Time  `json:"pending_since,omitempty"`
	PagesFetched int         `json:"pages_fetched"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPartial returns true if a refresh stopped before reaching the end
func (c *ChannelCache) IsPartial() bool {
	return c.Status == CachePartial
}

// IsFresh reports whether the watermark is within the freshness budget
func (c *ChannelCache) IsFresh(now time.Time, budget time.Duration) bool {
	if c.RefreshedAt == nil {
		return false
	}
	return now.Sub(*c.RefreshedAt) <= budget
}

// Age returns time since the watermark, or -1 if never refreshed
func (c *ChannelCache) Age(now time.Time) time.Duration {
	if c.RefreshedAt == nil {
		return -1
	}
	return now.Sub(*c.RefreshedAt)
}
