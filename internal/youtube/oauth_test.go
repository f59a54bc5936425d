package youtube

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlist-sync/internal/config"
	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/storage/memory"
	"github.com/playlist-sync/pkg/logger"
)

func testYouTubeConfig() config.YouTubeConfig {
	return config.YouTubeConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:8085/callback",
	}
}

func TestGetAuthURL_RequestsOfflineConsent(t *testing.T) {
	m, err := NewOAuthManager(testYouTubeConfig(), nil, logger.Nop())
	require.NoError(t, err)

	u, err := url.Parse(m.GetAuthURL("state123"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "state123", q.Get("state"))
	assert.Equal(t, "https://www.googleapis.com/auth/youtube", q.Get("scope"))
}

func TestGetValidToken_NoTokenIsCredentialFailure(t *testing.T) {
	m, err := NewOAuthManager(testYouTubeConfig(), memory.New(), logger.Nop())
	require.NoError(t, err)

	_, err = m.GetValidToken(context.Background())
	assert.ErrorIs(t, err, ErrCredentials)
}

func TestGetValidToken_FromStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.SaveToken(ctx, &models.OAuthToken{
		Provider:    models.ProviderGoogle,
		AccessToken: "stored",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	m, err := NewOAuthManager(testYouTubeConfig(), store, logger.Nop())
	require.NoError(t, err)

	token, err := m.GetValidToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stored", token.AccessToken)

	ok, _, err := m.GetTokenStatus(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetValidToken_ExpiredWithoutRefresh(t *testing.T) {
	cfg := testYouTubeConfig()
	cfg.AccessToken = "env"
	cfg.TokenExpiresAt = time.Now().Add(-time.Hour).Format(time.RFC3339)

	m, err := NewOAuthManager(cfg, nil, logger.Nop())
	require.NoError(t, err)

	_, err = m.GetValidToken(context.Background())
	assert.ErrorIs(t, err, ErrCredentials)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cfg := testYouTubeConfig()
	cfg.AccessToken = "env"

	m, err := NewOAuthManager(cfg, store, logger.Nop())
	require.NoError(t, err)

	_, err = m.GetValidToken(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx))
	_, err = m.GetValidToken(ctx)
	assert.ErrorIs(t, err, ErrCredentials)
}
