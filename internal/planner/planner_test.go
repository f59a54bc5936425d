package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/planner/mocks"
	"github.com/playlist-sync/internal/quota"
	"github.com/playlist-sync/internal/storage/memory"
	"github.com/playlist-sync/internal/videocache"
	"github.com/playlist-sync/internal/youtube"
	"github.com/playlist-sync/pkg/logger"
)

const (
	chanA = models.ChannelKey("UCaaaaaaaaaaaaaaaaaaaaaa")
	chanB = models.ChannelKey("UCbbbbbbbbbbbbbbbbbbbbbb")
	chanC = models.ChannelKey("UCcccccccccccccccccccccc")
)

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n-1) }

// seededCache returns a cache holding A1,A3,A5 for channel A and B2,B4 for B
func seededCache(t *testing.T) *videocache.Cache {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	now := day(6)

	seed := func(key models.ChannelKey, prefix string, days ...int) {
		videos := make([]*models.Video, 0, len(days))
		for _, d := range days {
			videos = append(videos, &models.Video{ID: fmt.Sprintf("%s%d", prefix, d), PublishedAt: day(d)})
		}
		_, err := store.SavePage(ctx, &models.ChannelCache{
			ChannelID:         key,
			UploadsPlaylistID: key.UploadsPlaylistID(),
			Status:            models.CacheComplete,
			RefreshedAt:       &now,
		}, videos)
		require.NoError(t, err)
	}
	seed(chanA, "A", 5, 3, 1)
	seed(chanB, "B", 4, 2)

	ledger := quota.NewLedger(store, quota.NewConfig(10000, nil, time.UTC), logger.Nop())
	return videocache.New(store, nil, ledger, videocache.Config{Freshness: 7 * 24 * time.Hour}, logger.Nop())
}

func TestPlan_MergesChannelsChronologically(t *testing.T) {
	p := New(seededCache(t), logger.Nop())
	opts := Options{
		Window: videocache.Window{Start: day(1), End: day(5)},
		Mode:   videocache.RefreshNever,
	}

	plan, err := p.Plan(context.Background(), []models.ChannelKey{chanA, chanB}, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2", "A3", "B4", "A5"}, plan.IDs())
	assert.Equal(t, 5, plan.Candidates)
	assert.Empty(t, plan.Skipped)

	// once everything is in the playlist the plan is empty
	existing := make(map[string]struct{})
	for _, id := range plan.IDs() {
		existing[id] = struct{}{}
	}
	again, err := p.Plan(context.Background(), []models.ChannelKey{chanA, chanB}, opts, existing)
	require.NoError(t, err)
	assert.Empty(t, again.Items)
	assert.Equal(t, 5, again.Excluded)
}

func TestPlan_WindowAndExclusion(t *testing.T) {
	p := New(seededCache(t), logger.Nop())
	opts := Options{
		Window: videocache.Window{Start: day(2), End: day(4)},
		Mode:   videocache.RefreshNever,
	}

	plan, err := p.Plan(context.Background(), []models.ChannelKey{chanB, chanA}, opts, map[string]struct{}{"A3": {}})
	require.NoError(t, err)
	assert.Equal(t, []string{"B2", "B4"}, plan.IDs())
	assert.Equal(t, 1, plan.Excluded)
}

func TestPlan_TiesBrokenByID(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockSource(ctrl)
	same := day(3)

	source.EXPECT().ItemsFor(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req videocache.Request) (*videocache.Result, error) {
			if req.Channel == chanA {
				return &videocache.Result{Items: []*models.Video{{ID: "zz", PublishedAt: same}}}, nil
			}
			return &videocache.Result{Items: []*models.Video{{ID: "aa", PublishedAt: same}, {ID: "zz", PublishedAt: same}}}, nil
		}).Times(2)

	plan, err := New(source, logger.Nop()).Plan(context.Background(), []models.ChannelKey{chanA, chanB}, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "zz"}, plan.IDs(), "duplicates across channels appear once")
}

func TestPlan_SkipsFailingChannels(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockSource(ctrl)

	notFound := &youtube.APIError{Op: "channels.list", Kind: youtube.ErrNotFound, Err: errors.New("gone")}
	source.EXPECT().ItemsFor(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req videocache.Request) (*videocache.Result, error) {
			switch req.Channel {
			case chanA:
				return nil, notFound
			case chanB:
				return &videocache.Result{BudgetLimited: true, Partial: true, Items: []*models.Video{{ID: "b1", PublishedAt: day(1)}}}, nil
			}
			return nil, fmt.Errorf("wrapped: %w", quota.ErrBudgetExhausted)
		}).Times(3)

	plan, err := New(source, logger.Nop()).Plan(context.Background(), []models.ChannelKey{chanA, chanB, chanC}, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, plan.IDs())
	assert.True(t, plan.BudgetLimited)
	require.Len(t, plan.Skipped, 2)
	assert.Equal(t, chanA, plan.Skipped[0].Channel)
	assert.Equal(t, "not found", plan.Skipped[0].Reason)
	assert.Equal(t, "budget exhausted", plan.Skipped[1].Reason)
}

func TestPlan_CredentialFailureAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockSource(ctrl)
	source.EXPECT().ItemsFor(gomock.Any(), gomock.Any()).
		Return(nil, &youtube.APIError{Op: "playlistItems.list", Kind: youtube.ErrCredentials, Err: errors.New("401")})

	_, err := New(source, logger.Nop()).Plan(context.Background(), []models.ChannelKey{chanA, chanB}, Options{}, nil)
	assert.ErrorIs(t, err, youtube.ErrCredentials)
}

func TestPlan_InterruptSwitchesRemainingChannelsToCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockSource(ctrl)

	gomock.InOrder(
		source.EXPECT().ItemsFor(gomock.Any(), videocache.Request{Channel: chanA, Mode: videocache.RefreshIncremental}).
			Return(&videocache.Result{Interrupted: true}, nil),
		source.EXPECT().ItemsFor(gomock.Any(), videocache.Request{Channel: chanB, Mode: videocache.RefreshNever}).
			Return(&videocache.Result{Items: []*models.Video{{ID: "b1", PublishedAt: day(1)}}}, nil),
	)

	plan, err := New(source, logger.Nop()).Plan(context.Background(), []models.ChannelKey{chanA, chanB},
		Options{Mode: videocache.RefreshIncremental}, nil)
	require.NoError(t, err)
	assert.True(t, plan.Interrupted)
	assert.Equal(t, []string{"b1"}, plan.IDs())
}
