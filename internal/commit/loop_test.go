package commit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/playlist-sync/internal/commit"
	"github.com/playlist-sync/internal/commit/mocks"
	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/quota"
	"github.com/playlist-sync/internal/retry"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/internal/storage/memory"
	"github.com/playlist-sync/internal/watermark"
	"github.com/playlist-sync/internal/youtube"
	"github.com/playlist-sync/pkg/logger"
)

const (
	title      = "Weekly"
	playlistID = "PL123"
)

var planned = time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC)

type LoopTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	collection *mocks.MockCollection
	recorder   *mocks.MockRecorder
	store      *memory.Store
	ledger     *quota.Ledger
	tracker    *watermark.Tracker
	interrupt  *commit.Interrupt
	now        time.Time

	loop *commit.Loop
}

func (s *LoopTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.collection = mocks.NewMockCollection(s.ctrl)
	s.recorder = mocks.NewMockRecorder(s.ctrl)
	s.store = memory.New()
	s.interrupt = commit.NewInterrupt()
	s.now = planned.Add(time.Hour)
	s.build(10000)
}

func (s *LoopTestSuite) build(limit int) {
	clock := func() time.Time { return s.now }
	s.ledger = quota.NewLedger(s.store, quota.NewConfig(limit, nil, time.UTC), logger.Nop())
	s.ledger.SetClock(clock)
	s.tracker = watermark.New(s.store, 24*time.Hour, logger.Nop())

	s.loop = commit.New(s.store, s.collection, s.ledger, s.tracker, commit.Config{
		Retry:            retry.Config{MaxAttempts: 2, InitialBackoff: time.Millisecond},
		ProgressInterval: 1,
	}, logger.Nop())
	s.loop.SetClock(clock)
	s.loop.SetInterrupt(s.interrupt)
}

// queue persists a queue of the given video ids, one day apart
func (s *LoopTestSuite) queue(ids ...string) *models.CommitQueue {
	videos := make([]*models.Video, 0, len(ids))
	for i, id := range ids {
		videos = append(videos, &models.Video{ID: id, Title: "t-" + id, PublishedAt: planned.AddDate(0, 0, -10+i)})
	}
	q := commit.BuildQueue(title, playlistID, "run-1", []string{"UCaaaaaaaaaaaaaaaaaaaaaa"}, planned, videos)
	s.Require().NoError(s.store.SaveQueue(context.Background(), q))
	return q
}

func (s *LoopTestSuite) reload() *models.CommitQueue {
	q, err := s.store.GetQueue(context.Background(), title)
	s.Require().NoError(err)
	return q
}

func (s *LoopTestSuite) used() int {
	snap, err := s.ledger.Usage(context.Background())
	s.Require().NoError(err)
	return snap.Used
}

func TestLoopTestSuite(t *testing.T) {
	suite.Run(t, new(LoopTestSuite))
}

func (s *LoopTestSuite) TestRun_CommitsInOrderAndCompletes() {
	ctx := context.Background()
	q := s.queue("a", "b", "c")
	s.loop.SetRecorder(s.recorder)

	gomock.InOrder(
		s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "a").Return(nil),
		s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "b").Return(nil),
		s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "c").Return(nil),
	)
	s.recorder.EXPECT().RecordCommit(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	out, err := s.loop.Run(ctx, q, nil)
	s.Require().NoError(err)
	s.Equal(commit.StateCompleted, out.State)
	s.Equal(3, out.Committed)
	s.Equal(150, s.used())

	_, err = s.store.GetQueue(ctx, title)
	s.ErrorIs(err, storage.ErrNotFound, "a completed queue is removed")

	start, err := s.tracker.NextEffectiveStart(ctx, playlistID, time.Time{})
	s.Require().NoError(err)
	s.True(start.Equal(planned.Add(-24*time.Hour)), "watermark is the planning time minus grace")
}

func (s *LoopTestSuite) TestRun_BudgetPausesAndResumesNextDay() {
	ctx := context.Background()
	s.build(100)
	q := s.queue("first", "second")

	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "first").Return(nil)

	out, err := s.loop.Run(ctx, q, nil)
	s.Require().NoError(err)
	s.Equal(commit.StatePaused, out.State)
	s.True(out.BudgetLimited)
	s.Equal(1, out.Committed)
	s.Equal(1, out.Remaining)
	s.Equal(50, s.used())

	persisted := s.reload()
	s.Equal(1, persisted.Cursor)
	s.Equal(models.QueuePaused, persisted.Status)

	// the next day the ledger is reset and only the remaining item is added
	s.now = s.now.Add(24 * time.Hour)
	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "second").Return(nil)

	out, err = s.loop.Run(ctx, persisted, map[string]struct{}{"first": {}})
	s.Require().NoError(err)
	s.Equal(commit.StateCompleted, out.State)
	s.Equal(1, out.Committed)
	s.Equal(50, s.used())
}

func (s *LoopTestSuite) TestRun_SkipsExistingAndInRunDuplicates() {
	q := s.queue("a", "b", "a")

	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "a").Return(nil).Times(1)

	out, err := s.loop.Run(context.Background(), q, map[string]struct{}{"b": {}})
	s.Require().NoError(err)
	s.Equal(commit.StateCompleted, out.State)
	s.Equal(1, out.Committed)
	s.Equal(2, out.Duplicates)
	s.Equal(50, s.used(), "duplicates cost nothing")
}

func (s *LoopTestSuite) TestRun_InterruptStopsAfterCurrentItem() {
	q := s.queue("a", "b", "c")

	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "a").DoAndReturn(
		func(context.Context, string, string) error {
			s.interrupt.Request()
			return nil
		})

	out, err := s.loop.Run(context.Background(), q, nil)
	s.Require().NoError(err)
	s.Equal(commit.StateInterrupted, out.State)
	s.Equal(1, out.Committed)
	s.Equal(2, out.Remaining)

	persisted := s.reload()
	s.Equal(1, persisted.Cursor)
	s.Equal(models.QueueInterrupted, persisted.Status)
}

func (s *LoopTestSuite) TestRun_ResumeCommitsOnlyRemainingItems() {
	ctx := context.Background()
	s.queue("a", "b", "c")
	s.Require().NoError(s.store.UpdateQueueCursor(ctx, title, 2, models.QueueInterrupted))

	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "c").Return(nil)

	out, err := s.loop.Run(ctx, s.reload(), map[string]struct{}{"a": {}, "b": {}})
	s.Require().NoError(err)
	s.Equal(commit.StateCompleted, out.State)
	s.Equal(1, out.Committed)
	s.Equal(0, out.Duplicates)
}

func (s *LoopTestSuite) TestRun_UnavailableVideoIsSkipped() {
	q := s.queue("gone", "ok")

	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "gone").
		Return(&youtube.APIError{Op: "playlistItems.insert", Kind: youtube.ErrItemUnavailable, Err: errors.New("404")})
	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "ok").Return(nil)

	out, err := s.loop.Run(context.Background(), q, nil)
	s.Require().NoError(err)
	s.Equal(commit.StateCompleted, out.State)
	s.Equal(1, out.Committed)
	s.Require().Len(out.Failed, 1)
	s.Equal("unavailable", out.Failed[0].Reason)
}

func (s *LoopTestSuite) TestRun_TransientRetriedThenSkipped() {
	q := s.queue("flaky")
	transient := &youtube.APIError{Op: "playlistItems.insert", Kind: youtube.ErrTransient, Err: errors.New("503")}
	gomock.InOrder(
		s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "flaky").Return(transient),
		s.collection.EXPECT().ContainsVideo(gomock.Any(), playlistID, "flaky").Return(false, nil),
		s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "flaky").Return(transient),
	)

	out, err := s.loop.Run(context.Background(), q, nil)
	s.Require().NoError(err)
	s.Equal(commit.StateCompleted, out.State)
	s.Require().Len(out.Failed, 1)
	s.Equal("transient failure", out.Failed[0].Reason)
	s.Equal(101, s.used(), "two inserts and one membership check")
}

func (s *LoopTestSuite) TestRun_RetriedInsertIsChargedAgain() {
	q := s.queue("flaky")
	transient := &youtube.APIError{Op: "playlistItems.insert", Kind: youtube.ErrTransient, Err: errors.New("503")}
	gomock.InOrder(
		s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "flaky").Return(transient),
		s.collection.EXPECT().ContainsVideo(gomock.Any(), playlistID, "flaky").Return(false, nil),
		s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "flaky").Return(nil),
	)

	out, err := s.loop.Run(context.Background(), q, nil)
	s.Require().NoError(err)
	s.Equal(commit.StateCompleted, out.State)
	s.Equal(1, out.Committed)
	s.Equal(101, s.used())
}

func (s *LoopTestSuite) TestRun_TimedOutInsertThatLandedIsNotRepeated() {
	q := s.queue("slow")
	transient := &youtube.APIError{Op: "playlistItems.insert", Kind: youtube.ErrTransient, Err: errors.New("timeout")}
	gomock.InOrder(
		s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "slow").Return(transient),
		s.collection.EXPECT().ContainsVideo(gomock.Any(), playlistID, "slow").Return(true, nil),
	)

	out, err := s.loop.Run(context.Background(), q, nil)
	s.Require().NoError(err)
	s.Equal(commit.StateCompleted, out.State)
	s.Equal(1, out.Committed)
	s.Empty(out.Failed)
	s.Equal(51, s.used())
}

func (s *LoopTestSuite) TestRun_RetryDeniedByBudgetPauses() {
	s.build(60)
	q := s.queue("flaky")
	transient := &youtube.APIError{Op: "playlistItems.insert", Kind: youtube.ErrTransient, Err: errors.New("503")}
	gomock.InOrder(
		s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "flaky").Return(transient),
		s.collection.EXPECT().ContainsVideo(gomock.Any(), playlistID, "flaky").Return(false, nil),
	)

	out, err := s.loop.Run(context.Background(), q, nil)
	s.Require().NoError(err)
	s.Equal(commit.StatePaused, out.State)
	s.True(out.BudgetLimited)
	s.Equal(0, s.reload().Cursor)
	s.Equal(51, s.used())
}

func (s *LoopTestSuite) TestRun_ServerQuotaPausesWithoutConsumingItem() {
	ctx := context.Background()
	q := s.queue("a", "b")

	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "a").
		Return(&youtube.APIError{Op: "playlistItems.insert", Kind: youtube.ErrQuotaExceeded, Err: errors.New("403")})

	out, err := s.loop.Run(ctx, q, nil)
	s.Require().NoError(err)
	s.Equal(commit.StatePaused, out.State)
	s.Equal(2, out.Remaining)
	s.Equal(0, s.reload().Cursor)

	snap, err := s.ledger.Usage(ctx)
	s.Require().NoError(err)
	s.True(snap.Exhausted)
}

func (s *LoopTestSuite) TestRun_CredentialFailureIsFatal() {
	q := s.queue("a")
	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "a").
		Return(&youtube.APIError{Op: "playlistItems.insert", Kind: youtube.ErrCredentials, Err: errors.New("401")})

	_, err := s.loop.Run(context.Background(), q, nil)
	s.ErrorIs(err, youtube.ErrCredentials)
	s.Equal(0, s.reload().Cursor)
}

func (s *LoopTestSuite) TestRun_RecorderErrorsAreNotFatal() {
	q := s.queue("a")
	s.loop.SetRecorder(s.recorder)
	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "a").Return(nil)
	s.recorder.EXPECT().RecordCommit(gomock.Any(), gomock.Any()).Return(errors.New("sheets down"))

	out, err := s.loop.Run(context.Background(), q, nil)
	s.Require().NoError(err)
	s.Equal(commit.StateCompleted, out.State)
}

func (s *LoopTestSuite) TestRun_RejectsCorruptQueue() {
	q := s.queue("a")
	q.Cursor = 5

	_, err := s.loop.Run(context.Background(), q, nil)
	s.ErrorIs(err, storage.ErrCorrupt)
}

func (s *LoopTestSuite) TestRun_CursorPersistFailureStops() {
	q := s.queue("a", "b")
	s.collection.EXPECT().AddItem(gomock.Any(), playlistID, "a").DoAndReturn(
		func(context.Context, string, string) error {
			s.store.FailWrites(errors.New("disk full"))
			return nil
		})

	_, err := s.loop.Run(context.Background(), q, nil)
	s.Error(err)
}
