package models

import "time"

// QueueStatus describes why a commit queue still exists
type QueueStatus string

const (
	QueuePending     QueueStatus = "pending"
	QueuePaused      QueueStatus = "paused"      // budget exhausted
	QueueInterrupted QueueStatus = "interrupted" // operator stop
	// QueueDraft pins a playlist created by a run that has not planned yet
	QueueDraft QueueStatus = "draft"
)

// CommitQueue is the frozen plan of a run that has not completed
type CommitQueue struct {
	PlaylistTitle string      `gorm:"primaryKey" json:"playlist_title"`
	PlaylistID    string      `gorm:"not null" json:"playlist_id"`
	RunID         string      `gorm:"size:36" json:"run_id"`
	Cursor        int         `json:"cursor"`
	Status        QueueStatus `gorm:"default:'pending'" json:"status"`
	Channels      StringSlice `gorm:"type:json" json:"channels"`
	PlannedAt     time.Time   `json:"planned_at"`
	Items         []QueueItem `gorm:"foreignKey:PlaylistTitle;references:PlaylistTitle" json:"items"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// QueueItem is one planned insert
type QueueItem struct {
	PlaylistTitle string     `gorm:"primaryKey" json:"-"`
	Position      int        `gorm:"primaryKey;autoIncrement:false" json:"position"`
	VideoID       string     `gorm:"not null" json:"video_id"`
	ChannelID     ChannelKey `json:"channel_id"`
	Title         string     `json:"title"`
	PublishedAt   time.Time  `json:"published_at"`
}

// Remaining returns the items at and after the cursor
func (q *CommitQueue) Remaining() []QueueItem {
	if q.Cursor >= len(q.Items) {
		return nil
	}
	return q.Items[q.Cursor:]
}

// Done returns true when every item has been processed
func (q *CommitQueue) Done() bool {
	return q.Cursor >= len(q.Items)
}

// Valid checks the structural invariants of a persisted queue
func (q *CommitQueue) Valid() bool {
	if q.PlaylistID == "" || q.Cursor < 0 || q.Cursor > len(q.Items) {
		return false
	}
	for i, item := range q.Items {
		if item.Position != i || item.VideoID == "" {
			return false
		}
	}
	return true
}
