package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/storage"
)

const channel models.ChannelKey = "UCAAAAAAAAAAAAAAAAAAAAAA"

type RepositoryTestSuite struct {
	suite.Suite
	repo *Repository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	repo, err := New(filepath.Join(s.T().TempDir(), "data", "test.db"))
	s.Require().NoError(err)
	s.Require().NoError(repo.Migrate())
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.NoError(s.repo.Close())
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func video(id string, day int) *models.Video {
	return &models.Video{
		ID:          id,
		Title:       "video " + id,
		PublishedAt: time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC),
	}
}

func (s *RepositoryTestSuite) TestSavePage_MergesFirstSeenWins() {
	entry := &models.ChannelCache{ChannelID: channel, Title: "A", Status: models.CachePartial}

	added, err := s.repo.SavePage(s.ctx, entry, []*models.Video{video("v1", 1), video("v2", 2)})
	s.Require().NoError(err)
	s.Equal(2, added)

	changed := video("v2", 2)
	changed.Title = "renamed"
	added, err = s.repo.SavePage(s.ctx, entry, []*models.Video{changed, video("v3", 3)})
	s.Require().NoError(err)
	s.Equal(1, added)

	videos, err := s.repo.ListVideos(s.ctx, channel)
	s.Require().NoError(err)
	s.Require().Len(videos, 3)
	s.Equal([]string{"v1", "v2", "v3"}, []string{videos[0].ID, videos[1].ID, videos[2].ID})
	s.Equal("video v2", videos[1].Title)
	s.Equal(3, videos[2].Seq)

	stored, err := s.repo.GetChannelCache(s.ctx, channel)
	s.Require().NoError(err)
	s.Equal(models.CachePartial, stored.Status)
}

func (s *RepositoryTestSuite) TestFinishRefresh_PrunesUnseen() {
	entry := &models.ChannelCache{ChannelID: channel}
	_, err := s.repo.SavePage(s.ctx, entry, []*models.Video{video("old", 1), video("kept", 2)})
	s.Require().NoError(err)

	entry.PendingRun = "run-2"
	_, err = s.repo.SavePage(s.ctx, entry, []*models.Video{video("kept", 2), video("new", 3)})
	s.Require().NoError(err)

	entry.PendingRun = ""
	entry.Status = models.CacheComplete
	pruned, err := s.repo.FinishRefresh(s.ctx, entry, "run-2")
	s.Require().NoError(err)
	s.Equal(1, pruned)

	count, err := s.repo.CountVideos(s.ctx, channel)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *RepositoryTestSuite) TestQueue_SaveUpdateDelete() {
	queue := &models.CommitQueue{
		PlaylistTitle: "Weekly",
		PlaylistID:    "PL1",
		RunID:         "r1",
		Channels:      models.StringSlice{string(channel)},
		PlannedAt:     time.Now().UTC(),
		Items: []models.QueueItem{
			{Position: 0, VideoID: "v1", ChannelID: channel},
			{Position: 1, VideoID: "v2", ChannelID: channel},
		},
	}
	s.Require().NoError(s.repo.SaveQueue(s.ctx, queue))
	s.Require().NoError(s.repo.UpdateQueueCursor(s.ctx, "Weekly", 1, models.QueuePaused))

	loaded, err := s.repo.GetQueue(s.ctx, "Weekly")
	s.Require().NoError(err)
	s.Equal(1, loaded.Cursor)
	s.Equal(models.QueuePaused, loaded.Status)
	s.Require().Len(loaded.Items, 2)
	s.Equal("v2", loaded.Remaining()[0].VideoID)
	s.Equal(models.StringSlice{string(channel)}, loaded.Channels)
	s.True(loaded.Valid())

	s.Require().NoError(s.repo.DeleteQueue(s.ctx, "Weekly"))
	_, err = s.repo.GetQueue(s.ctx, "Weekly")
	s.ErrorIs(err, storage.ErrNotFound)
	s.ErrorIs(s.repo.UpdateQueueCursor(s.ctx, "Weekly", 0, models.QueuePaused), storage.ErrNotFound)
}

func (s *RepositoryTestSuite) TestQuotaUsage_Upsert() {
	s.Require().NoError(s.repo.SaveQuotaUsage(s.ctx, &models.QuotaUsage{Day: "2024-01-01", Units: 50}))
	s.Require().NoError(s.repo.SaveQuotaUsage(s.ctx, &models.QuotaUsage{Day: "2024-01-01", Units: 150}))
	s.Require().NoError(s.repo.SaveQuotaUsage(s.ctx, &models.QuotaUsage{Day: "2024-01-02", Units: 1}))

	usage, err := s.repo.GetQuotaUsage(s.ctx, "2024-01-01")
	s.Require().NoError(err)
	s.Equal(150, usage.Units)

	history, err := s.repo.ListQuotaUsage(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("2024-01-02", history[0].Day)

	_, err = s.repo.GetQuotaUsage(s.ctx, "1999-01-01")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *RepositoryTestSuite) TestSyncStateAndToken() {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.repo.SaveSyncState(s.ctx, &models.PlaylistSyncState{PlaylistID: "PL1", Title: "Weekly", LastSuccessAt: at}))

	state, err := s.repo.GetSyncState(s.ctx, "PL1")
	s.Require().NoError(err)
	s.True(at.Equal(state.LastSuccessAt))

	s.Require().NoError(s.repo.SaveToken(s.ctx, &models.OAuthToken{Provider: models.ProviderGoogle, AccessToken: "a"}))
	s.Require().NoError(s.repo.SaveToken(s.ctx, &models.OAuthToken{Provider: models.ProviderGoogle, AccessToken: "b"}))
	token, err := s.repo.GetToken(s.ctx, models.ProviderGoogle)
	s.Require().NoError(err)
	s.Equal("b", token.AccessToken)
}

func TestNew_CreatesDirectory(t *testing.T) {
	repo, err := New(filepath.Join(t.TempDir(), "nested", "dir", "x.db"))
	require.NoError(t, err)
	defer repo.Close()
	assert.NoError(t, repo.Migrate())
}
