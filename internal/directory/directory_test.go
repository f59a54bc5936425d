package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/playlist-sync/internal/directory/mocks"
	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/quota"
	"github.com/playlist-sync/internal/retry"
	"github.com/playlist-sync/internal/storage/memory"
	"github.com/playlist-sync/internal/youtube"
	"github.com/playlist-sync/pkg/logger"
)

const (
	keyA = models.ChannelKey("UCaaaaaaaaaaaaaaaaaaaaaa")
	keyB = models.ChannelKey("UCbbbbbbbbbbbbbbbbbbbbbb")
)

type DirectoryTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	lookup *mocks.MockLookup
	store  *memory.Directory
	quota  *memory.Store
	ledger *quota.Ledger

	dir *Directory
}

func (s *DirectoryTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.lookup = mocks.NewMockLookup(s.ctrl)
	s.store = memory.NewDirectory(nil)
	s.quota = memory.New()
	s.newLedger(10000)
}

func (s *DirectoryTestSuite) newLedger(limit int) {
	s.ledger = quota.NewLedger(s.quota, quota.NewConfig(limit, nil, time.UTC), logger.Nop())
	s.dir = New(s.store, s.lookup, s.ledger, retry.Config{MaxAttempts: 2, InitialBackoff: time.Millisecond}, logger.Nop())
}

func (s *DirectoryTestSuite) used() int {
	snap, err := s.ledger.Usage(context.Background())
	s.Require().NoError(err)
	return snap.Used
}

func TestDirectoryTestSuite(t *testing.T) {
	suite.Run(t, new(DirectoryTestSuite))
}

func (s *DirectoryTestSuite) TestResolve_RawKeyIsFree() {
	key, err := s.dir.Resolve(context.Background(), string(keyA))
	s.Require().NoError(err)
	s.Equal(keyA, key)
	s.Equal(0, s.used())
	s.Equal(0, s.store.Puts())
}

func (s *DirectoryTestSuite) TestResolve_SearchOnMissThenCached() {
	ctx := context.Background()
	s.lookup.EXPECT().SearchChannel(gomock.Any(), "Some Channel").Return(keyA, nil).Times(1)

	key, err := s.dir.Resolve(ctx, "Some Channel")
	s.Require().NoError(err)
	s.Equal(keyA, key)
	s.Equal(100, s.used())

	key, err = s.dir.Resolve(ctx, "Some Channel")
	s.Require().NoError(err)
	s.Equal(keyA, key)
	s.Equal(100, s.used(), "cached resolution must not spend quota")
}

func (s *DirectoryTestSuite) TestResolve_HandleUsesCheapLookup() {
	s.lookup.EXPECT().ChannelForHandle(gomock.Any(), "@someone").Return(keyB, nil)

	key, err := s.dir.Resolve(context.Background(), "https://www.youtube.com/@someone")
	s.Require().NoError(err)
	s.Equal(keyB, key)
	s.Equal(1, s.used())

	stored, err := s.store.Get(context.Background(), "https://www.youtube.com/@someone")
	s.Require().NoError(err)
	s.Equal(keyB, stored)
}

func (s *DirectoryTestSuite) TestResolve_DeniedBudgetSkipsCall() {
	s.newLedger(50)

	_, err := s.dir.Resolve(context.Background(), "Expensive Name")
	s.ErrorIs(err, quota.ErrBudgetExhausted)
	s.Equal(0, s.used())
}

func (s *DirectoryTestSuite) TestResolve_NotFound() {
	s.lookup.EXPECT().SearchChannel(gomock.Any(), "Nobody").
		Return(models.ChannelKey(""), &youtube.APIError{Op: "search.list", Kind: youtube.ErrNotFound, Err: errors.New("no match")})

	_, err := s.dir.Resolve(context.Background(), "Nobody")
	s.ErrorIs(err, ErrChannelNotFound)
	s.Equal(0, s.store.Puts())
}

func (s *DirectoryTestSuite) TestResolve_RetriesTransient() {
	transient := &youtube.APIError{Op: "search.list", Kind: youtube.ErrTransient, Err: errors.New("503")}
	gomock.InOrder(
		s.lookup.EXPECT().SearchChannel(gomock.Any(), "Flaky").Return(models.ChannelKey(""), transient),
		s.lookup.EXPECT().SearchChannel(gomock.Any(), "Flaky").Return(keyA, nil),
	)

	key, err := s.dir.Resolve(context.Background(), "Flaky")
	s.Require().NoError(err)
	s.Equal(keyA, key)
	s.Equal(200, s.used(), "both searches are charged")
}

func (s *DirectoryTestSuite) TestResolve_ServerQuotaExhaustsLedger() {
	s.lookup.EXPECT().SearchChannel(gomock.Any(), "Name").
		Return(models.ChannelKey(""), &youtube.APIError{Op: "search.list", Kind: youtube.ErrQuotaExceeded, Err: errors.New("403")})

	_, err := s.dir.Resolve(context.Background(), "Name")
	s.ErrorIs(err, quota.ErrBudgetExhausted)

	snap, err := s.ledger.Usage(context.Background())
	s.Require().NoError(err)
	s.True(snap.Exhausted)
}

func (s *DirectoryTestSuite) TestForceResolve_OverwritesMapping() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "Renamed", keyA))
	s.lookup.EXPECT().SearchChannel(gomock.Any(), "Renamed").Return(keyB, nil)

	key, err := s.dir.ForceResolve(ctx, "Renamed")
	s.Require().NoError(err)
	s.Equal(keyB, key)

	stored, err := s.store.Get(ctx, "Renamed")
	s.Require().NoError(err)
	s.Equal(keyB, stored)
}

func (s *DirectoryTestSuite) TestResolve_InvalidIdentifier() {
	_, err := s.dir.Resolve(context.Background(), "   ")
	s.ErrorIs(err, ErrInvalidIdentifier)
}

func (s *DirectoryTestSuite) TestRepopulate_FromChannelCaches() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "Alpha", keyB))

	caches := mocks.NewMockCacheIndex(s.ctrl)
	caches.EXPECT().ListChannelCaches(ctx).Return([]*models.ChannelCache{
		{ChannelID: keyA, Title: "Alpha"},
		{ChannelID: keyB, Title: "Beta"},
		{ChannelID: "bogus", Title: "Gamma"},
		{ChannelID: keyA, Title: "_note"},
		{ChannelID: keyA},
	}, nil)

	added, err := s.dir.Repopulate(ctx, caches)
	s.Require().NoError(err)
	s.Equal(1, added)

	all, err := s.dir.Entries(ctx)
	s.Require().NoError(err)
	s.Equal(map[string]models.ChannelKey{"Alpha": keyB, "Beta": keyB}, all)
	s.Equal(0, s.used())
}

func (s *DirectoryTestSuite) TestResolve_OfflineMissIsNotFound() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "@known", keyA))
	offline := New(s.store, nil, s.ledger, retry.Config{MaxAttempts: 1}, logger.Nop())

	key, err := offline.Resolve(ctx, "@known")
	s.Require().NoError(err)
	s.Equal(keyA, key)

	_, err = offline.Resolve(ctx, "@unknown")
	s.ErrorIs(err, ErrChannelNotFound)
	s.Zero(s.used())
}
