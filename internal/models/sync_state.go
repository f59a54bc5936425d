package models

import "time"

// PlaylistSyncState records the last completed run per target playlist
type PlaylistSyncState struct {
	PlaylistID     string      `gorm:"primaryKey" json:"playlist_id"`
	Title          string      `json:"title"`
	LastSuccessAt  time.Time   `json:"last_success_at"`
	LastRunID      string      `gorm:"size:36" json:"last_run_id"`
	ItemsCommitted int         `json:"items_committed"`
	Channels       StringSlice `gorm:"type:json" json:"channels"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}
