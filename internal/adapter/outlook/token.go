package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// RedirectURL must match the redirect registered for the Azure app.
const RedirectURL = "http://localhost:8085/callback"

// OAuthConfig returns the OAuth2 configuration for the Microsoft identity platform.
// An empty tenantID means "common".
func OAuthConfig(clientID, tenantID string) *oauth2.Config {
	if tenantID == "" {
		tenantID = "common"
	}
	return &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    microsoft.AzureADEndpoint(tenantID),
		RedirectURL: RedirectURL,
		Scopes: []string{
			"https://graph.microsoft.com/Calendars.Read",
			"https://graph.microsoft.com/User.Read",
			"offline_access",
		},
	}
}

// tokenStore owns the saved OAuth token. It refreshes expired tokens, writes
// them back to disk and satisfies azcore.TokenCredential for the Graph SDK.
type tokenStore struct {
	config *oauth2.Config
	path   string

	mu    sync.Mutex
	token *oauth2.Token
}

func newTokenStore(config *oauth2.Config, path string) *tokenStore {
	return &tokenStore{config: config, path: path}
}

func (s *tokenStore) load() error {
	tok, err := readToken(s.path)
	if err != nil {
		return fmt.Errorf("read token file (run 'gaps auth' first): %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("token file has no access token, delete %s and run 'gaps auth' again", s.path)
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return nil
}

// GetToken implements azcore.TokenCredential.
func (s *tokenStore) GetToken(ctx context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil {
		return azcore.AccessToken{}, fmt.Errorf("no token loaded")
	}

	if !s.token.Valid() {
		fresh, err := s.config.TokenSource(ctx, s.token).Token()
		if err != nil {
			return azcore.AccessToken{}, fmt.Errorf("token expired and refresh failed (delete %s and run 'gaps auth'): %w", s.path, err)
		}
		s.token = fresh
		// A failed write only costs another refresh next run
		_ = SaveToken(s.path, fresh)
	}

	return azcore.AccessToken{
		Token:     s.token.AccessToken,
		ExpiresOn: s.token.Expiry,
	}, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// SaveToken writes an OAuth token as JSON, readable only by the owner.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
