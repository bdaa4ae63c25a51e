package cmd

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGoogleAuthURLRequestsRefreshToken(t *testing.T) {
	config := &oauth2.Config{
		ClientID:    "client",
		RedirectURL: redirectURL,
		Endpoint:    oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth"},
	}

	u, err := url.Parse(config.AuthCodeURL("state-token", googleAuthOptions...))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
}
