package youtube

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/playlist-sync/internal/config"
	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/pkg/logger"
)

// OAuthManager handles the Google installed-app OAuth flow
type OAuthManager struct {
	config *oauth2.Config
	tokens storage.TokenStore // optional, nil for env-only mode
	log    *logger.Logger

	mu           sync.RWMutex
	currentToken *models.OAuthToken
}

// NewOAuthManager creates an OAuth manager from a client secrets file or an
// explicit client id and secret
func NewOAuthManager(cfg config.YouTubeConfig, tokens storage.TokenStore, log *logger.Logger) (*OAuthManager, error) {
	oc, err := oauthConfig(cfg)
	if err != nil {
		return nil, err
	}

	m := &OAuthManager{
		config: oc,
		tokens: tokens,
		log:    log.WithComponent("oauth"),
	}

	if cfg.AccessToken != "" || cfg.RefreshToken != "" {
		var expiry time.Time
		if cfg.TokenExpiresAt != "" {
			if t, err := time.Parse(time.RFC3339, cfg.TokenExpiresAt); err == nil {
				expiry = t
			}
		}
		// An injected refresh token alone forces a refresh on first use
		if cfg.AccessToken == "" {
			expiry = time.Unix(1, 0)
		}

		m.currentToken = &models.OAuthToken{
			Provider:     models.ProviderGoogle,
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
			TokenType:    "Bearer",
			ExpiresAt:    expiry,
		}
		m.log.Info().
			Time("expires_at", expiry).
			Bool("refreshable", cfg.RefreshToken != "").
			Msg("OAuth token initialized from environment")
	}

	return m, nil
}

func oauthConfig(cfg config.YouTubeConfig) (*oauth2.Config, error) {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"https://www.googleapis.com/auth/youtube"}
	}

	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		return &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		}, nil
	}

	data, err := os.ReadFile(cfg.ClientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets: %w", err)
	}
	oc, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}
	if cfg.RedirectURI != "" {
		oc.RedirectURL = cfg.RedirectURI
	}
	return oc, nil
}

// GenerateState creates a random state for OAuth CSRF protection
func GenerateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GetAuthURL returns the consent URL. Consent is always prompted so Google
// issues a refresh token.
func (m *OAuthManager) GetAuthURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode exchanges the authorization code for tokens
func (m *OAuthManager) ExchangeCode(ctx context.Context, code string) (*models.OAuthToken, error) {
	m.log.Info().Msg("Exchanging authorization code for token")

	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to exchange code")
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	oauthToken := &models.OAuthToken{Provider: models.ProviderGoogle}
	oauthToken.FromOAuth2Token(token)
	m.store(ctx, oauthToken)

	m.log.Info().
		Time("expires_at", token.Expiry).
		Bool("refreshable", token.RefreshToken != "").
		Msg("Token saved successfully")

	return oauthToken, nil
}

func (m *OAuthManager) store(ctx context.Context, token *models.OAuthToken) {
	m.mu.Lock()
	m.currentToken = token
	m.mu.Unlock()

	if m.tokens != nil {
		if err := m.tokens.SaveToken(ctx, token); err != nil {
			m.log.Warn().Err(err).Msg("Failed to save token to database (using in-memory only)")
		}
	}
}

func (m *OAuthManager) loadToken(ctx context.Context) (*models.OAuthToken, error) {
	m.mu.RLock()
	token := m.currentToken
	m.mu.RUnlock()
	if token != nil {
		return token, nil
	}

	if m.tokens != nil {
		dbToken, err := m.tokens.GetToken(ctx, models.ProviderGoogle)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		if dbToken != nil {
			m.mu.Lock()
			m.currentToken = dbToken
			m.mu.Unlock()
			return dbToken, nil
		}
	}
	return nil, nil
}

// GetValidToken returns a valid access token, refreshing if necessary.
// Failures wrap ErrCredentials.
func (m *OAuthManager) GetValidToken(ctx context.Context) (*models.OAuthToken, error) {
	token, err := m.loadToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return nil, fmt.Errorf("%w: no token found, run 'playlist-sync auth login'", ErrCredentials)
	}

	if token.NeedsRefresh() {
		m.log.Info().Msg("Token expiring soon, refreshing")
		return m.refreshToken(ctx, token)
	}
	return token, nil
}

func (m *OAuthManager) refreshToken(ctx context.Context, token *models.OAuthToken) (*models.OAuthToken, error) {
	if !token.CanRefresh() {
		return nil, fmt.Errorf("%w: token expired and no refresh token available, run 'playlist-sync auth login'", ErrCredentials)
	}

	newToken, err := m.config.TokenSource(ctx, token.ToOAuth2Token()).Token()
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to refresh token")
		return nil, fmt.Errorf("%w: failed to refresh token, run 'playlist-sync auth login': %v", ErrCredentials, err)
	}

	refreshed := *token
	refreshed.FromOAuth2Token(newToken)
	m.store(ctx, &refreshed)

	m.log.Info().
		Time("expires_at", newToken.Expiry).
		Msg("Token refreshed successfully")

	return &refreshed, nil
}

// TokenSource returns an oauth2.TokenSource backed by the manager so that
// refreshed tokens are persisted
func (m *OAuthManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &managedSource{ctx: ctx, m: m})
}

type managedSource struct {
	ctx context.Context
	m   *OAuthManager
}

func (s *managedSource) Token() (*oauth2.Token, error) {
	token, err := s.m.GetValidToken(s.ctx)
	if err != nil {
		return nil, err
	}
	return token.ToOAuth2Token(), nil
}

// GetTokenStatus returns whether a usable token exists and when it expires
func (m *OAuthManager) GetTokenStatus(ctx context.Context) (bool, time.Time, error) {
	token, err := m.loadToken(ctx)
	if err != nil {
		return false, time.Time{}, err
	}
	if token == nil {
		return false, time.Time{}, fmt.Errorf("no token found")
	}
	return !token.IsExpired() || token.CanRefresh(), token.ExpiresAt, nil
}

// Logout forgets the stored token
func (m *OAuthManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.currentToken = nil
	m.mu.Unlock()

	if m.tokens == nil {
		return nil
	}
	if err := m.tokens.DeleteToken(ctx, models.ProviderGoogle); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// StartOAuthServer runs a temporary local server for the OAuth callback.
// onURL receives the consent URL once the server is listening.
func (m *OAuthManager) StartOAuthServer(ctx context.Context, onURL func(string)) error {
	redirect, err := url.Parse(m.config.RedirectURL)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("invalid redirect uri %q", m.config.RedirectURL)
	}
	path := redirect.Path
	if path == "" {
		path = "/"
	}

	state, err := GenerateState()
	if err != nil {
		return err
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			errChan <- fmt.Errorf("state mismatch")
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		if errMsg := q.Get("error"); errMsg != "" {
			errChan <- fmt.Errorf("oauth error: %s", errMsg)
			http.Error(w, errMsg, http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no code in callback")
			http.Error(w, "No code", http.StatusBadRequest)
			return
		}

		codeChan <- code

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `
			<html>
			<body style="font-family: sans-serif; text-align: center; padding: 50px;">
				<h1>Authorization successful</h1>
				<p>You can close this window and return to the terminal.</p>
			</body>
			</html>
		`)
	})

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := m.GetAuthURL(state)
	m.log.Info().
		Str("addr", redirect.Host).
		Msg("OAuth server started, waiting for callback")
	if onURL != nil {
		onURL(authURL)
	}

	select {
	case code := <-codeChan:
		_, err := m.ExchangeCode(ctx, code)
		return err
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
