package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer; every ledger and cursor update must land in order.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.ChannelCache{},
		&models.Video{},
		&models.QuotaUsage{},
		&models.CommitQueue{},
		&models.QueueItem{},
		&models.PlaylistSyncState{},
		&models.OAuthToken{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// Channel cache operations

func (r *Repository) GetChannelCache(ctx context.Context, key models.ChannelKey) (*models.ChannelCache, error) {
	var entry models.ChannelCache
	if err := r.db.WithContext(ctx).Where("channel_id = ?", key).First(&entry).Error; err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (r *Repository) ListChannelCaches(ctx context.Context) ([]*models.ChannelCache, error) {
	var entries []*models.ChannelCache
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) SaveChannelCache(ctx context.Context, entry *models.ChannelCache) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *Repository) ListVideos(ctx context.Context, key models.ChannelKey) ([]*models.Video, error) {
	var videos []*models.Video
	if err := r.db.WithContext(ctx).
		Where("channel_id = ?", key).
		Order("seq ASC").
		Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (r *Repository) CountVideos(ctx context.Context, key models.ChannelKey) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Video{}).Where("channel_id = ?", key).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *Repository) SavePage(ctx context.Context, entry *models.ChannelCache, videos []*models.Video) (int, error) {
	added := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		if err := tx.Model(&models.Video{}).
			Where("channel_id = ?", entry.ChannelID).
			Select("COALESCE(MAX(seq), 0)").
			Row().Scan(&maxSeq); err != nil {
			return err
		}

		ids := make([]string, 0, len(videos))
		for _, v := range videos {
			ids = append(ids, v.ID)
		}

		var existing []string
		if len(ids) > 0 {
			if err := tx.Model(&models.Video{}).
				Where("channel_id = ? AND id IN ?", entry.ChannelID, ids).
				Pluck("id", &existing).Error; err != nil {
				return err
			}
		}

		known := make(map[string]bool, len(existing))
		for _, id := range existing {
			known[id] = true
		}

		for _, v := range videos {
			if known[v.ID] {
				continue
			}
			known[v.ID] = true
			maxSeq++

			row := *v
			row.ChannelID = entry.ChannelID
			row.Seq = maxSeq
			row.SeenRun = entry.PendingRun
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			added++
		}

		if entry.PendingRun != "" && len(existing) > 0 {
			if err := tx.Model(&models.Video{}).
				Where("channel_id = ? AND id IN ?", entry.ChannelID, existing).
				Update("seen_run", entry.PendingRun).Error; err != nil {
				return err
			}
		}

		return tx.Save(entry).Error
	})
	if err != nil {
		return 0, &storage.Error{Op: "save page", Entity: "channel", ID: string(entry.ChannelID), Err: err}
	}
	return added, nil
}

func (r *Repository) FinishRefresh(ctx context.Context, entry *models.ChannelCache, pruneRun string) (int, error) {
	var pruned int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pruneRun != "" {
			res := tx.Where("channel_id = ? AND seen_run <> ?", entry.ChannelID, pruneRun).Delete(&models.Video{})
			if res.Error != nil {
				return res.Error
			}
			pruned = res.RowsAffected
		}
		return tx.Save(entry).Error
	})
	if err != nil {
		return 0, &storage.Error{Op: "finish refresh", Entity: "channel", ID: string(entry.ChannelID), Err: err}
	}
	return int(pruned), nil
}

func (r *Repository) DeleteVideos(ctx context.Context, key models.ChannelKey, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("channel_id = ? AND id IN ?", key, ids).Delete(&models.Video{}).Error
}

func (r *Repository) DeleteChannel(ctx context.Context, key models.ChannelKey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", key).Delete(&models.Video{}).Error; err != nil {
			return err
		}
		return tx.Where("channel_id = ?", key).Delete(&models.ChannelCache{}).Error
	})
}

func (r *Repository) ClearVideoCache(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Video{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.ChannelCache{}).Error
	})
}

// Quota operations

func (r *Repository) GetQuotaUsage(ctx context.Context, day string) (*models.QuotaUsage, error) {
	var usage models.QuotaUsage
	if err := r.db.WithContext(ctx).Where("day = ?", day).First(&usage).Error; err != nil {
		return nil, notFound(err)
	}
	return &usage, nil
}

func (r *Repository) SaveQuotaUsage(ctx context.Context, usage *models.QuotaUsage) error {
	return r.db.WithContext(ctx).Save(usage).Error
}

func (r *Repository) ListQuotaUsage(ctx context.Context, limit int) ([]*models.QuotaUsage, error) {
	var usage []*models.QuotaUsage
	query := r.db.WithContext(ctx).Order("day DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&usage).Error; err != nil {
		return nil, err
	}
	return usage, nil
}

// Commit queue operations

func (r *Repository) GetQueue(ctx context.Context, playlistTitle string) (*models.CommitQueue, error) {
	var queue models.CommitQueue
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("playlist_title = ?", playlistTitle).
		First(&queue).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &queue, nil
}

func (r *Repository) ListQueues(ctx context.Context) ([]*models.CommitQueue, error) {
	var queues []*models.CommitQueue
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("playlist_title ASC").
		Find(&queues).Error; err != nil {
		return nil, err
	}
	return queues, nil
}

func (r *Repository) SaveQueue(ctx context.Context, queue *models.CommitQueue) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_title = ?", queue.PlaylistTitle).Delete(&models.QueueItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("playlist_title = ?", queue.PlaylistTitle).Delete(&models.CommitQueue{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Items").Create(queue).Error; err != nil {
			return err
		}
		if len(queue.Items) == 0 {
			return nil
		}
		for i := range queue.Items {
			queue.Items[i].PlaylistTitle = queue.PlaylistTitle
		}
		return tx.CreateInBatches(queue.Items, 200).Error
	})
}

func (r *Repository) UpdateQueueCursor(ctx context.Context, playlistTitle string, cursor int, status models.QueueStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.CommitQueue{}).
		Where("playlist_title = ?", playlistTitle).
		Updates(map[string]interface{}{"cursor": cursor, "status": status})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteQueue(ctx context.Context, playlistTitle string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_title = ?", playlistTitle).Delete(&models.QueueItem{}).Error; err != nil {
			return err
		}
		return tx.Where("playlist_title = ?", playlistTitle).Delete(&models.CommitQueue{}).Error
	})
}

// Sync state operations

func (r *Repository) GetSyncState(ctx context.Context, playlistID string) (*models.PlaylistSyncState, error) {
	var state models.PlaylistSyncState
	if err := r.db.WithContext(ctx).Where("playlist_id = ?", playlistID).First(&state).Error; err != nil {
		return nil, notFound(err)
	}
	return &state, nil
}

func (r *Repository) SaveSyncState(ctx context.Context, state *models.PlaylistSyncState) error {
	return r.db.WithContext(ctx).Save(state).Error
}

func (r *Repository) ListSyncStates(ctx context.Context) ([]*models.PlaylistSyncState, error) {
	var states []*models.PlaylistSyncState
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

// OAuth token operations

func (r *Repository) SaveToken(ctx context.Context, token *models.OAuthToken) error {
	var existing models.OAuthToken
	result := r.db.WithContext(ctx).Where("provider = ?", token.Provider).First(&existing)
	if result.Error == nil {
		token.ID = existing.ID
		token.CreatedAt = existing.CreatedAt
	}
	return r.db.WithContext(ctx).Save(token).Error
}

func (r *Repository) GetToken(ctx context.Context, provider string) (*models.OAuthToken, error) {
	var token models.OAuthToken
	if err := r.db.WithContext(ctx).Where("provider = ?", provider).First(&token).Error; err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

func (r *Repository) DeleteToken(ctx context.Context, provider string) error {
	return r.db.WithContext(ctx).Where("provider = ?", provider).Delete(&models.OAuthToken{}).Error
}

var _ storage.Repository = (*Repository)(nil)
