package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/theakshaypant/gaps/internal/adapter/outlook"
	"github.com/theakshaypant/gaps/internal/util"
)

const (
	redirectPort = "8085"
	redirectURL  = "http://localhost:" + redirectPort + "/callback"
	authTimeout  = 5 * time.Minute
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with your calendar provider",
	Long: `Authenticate with your calendar provider using OAuth.

A local server receives the OAuth callback on port ` + redirectPort + ` while your browser
signs you in. The token is saved to token_file for later runs.

The provider comes from your profile configuration (provider: google|outlook).
The snapshot provider reads a local file and needs no authentication.`,
	RunE:              runAuth,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil }, // Skip adapter init
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	switch provider := viper.GetString("provider"); provider {
	case "google", "":
		return runGoogleAuth(cmd.Context())
	case "outlook":
		return runOutlookAuth(cmd.Context())
	case "snapshot":
		return errors.New("the snapshot provider needs no authentication")
	default:
		return fmt.Errorf("unknown provider: %s (supported: google, outlook)", provider)
	}
}

// googleAuthOptions forces the consent screen so Google returns a refresh token
// even when the app was authorized before.
var googleAuthOptions = []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}

func runGoogleAuth(ctx context.Context) error {
	credsFile := expandPath(viper.GetString("credentials_file"))
	tokenFile := expandPath(viper.GetString("token_file"))

	b, err := os.ReadFile(credsFile)
	if err != nil {
		return fmt.Errorf("unable to read credentials file %s: %w", credsFile, err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return fmt.Errorf("unable to parse credentials: %w", err)
	}
	config.RedirectURL = redirectURL

	tok, err := getTokenViaLocalServer(ctx, config, "Google", googleAuthOptions...)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	if err := saveToken(tokenFile, tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Println("\n✅ Authentication successful!")
	fmt.Printf("📁 Token saved to %s\n", tokenFile)
	fmt.Println("\nYou can now run 'gaps' to see your free time.")
	return nil
}

func runOutlookAuth(ctx context.Context) error {
	clientID := viper.GetString("client_id")
	if clientID == "" {
		return fmt.Errorf("client_id not configured\n\nAdd it to your profile config:\n  client_id: \"your-azure-app-client-id\"")
	}

	tokenFile := expandPath(viper.GetString("token_file"))
	config := outlook.OAuthConfig(clientID, viper.GetString("tenant_id"))

	tok, err := getTokenViaLocalServer(ctx, config, "Microsoft", oauth2.SetAuthURLParam("prompt", "consent"))
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	if err := outlook.SaveToken(tokenFile, tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Println("\n✅ Authentication successful!")
	fmt.Printf("📁 Token saved to %s\n", tokenFile)
	fmt.Println("\nYou can now run 'gaps' to see your free time in Outlook.")
	return nil
}

const authSuccessPage = `<!DOCTYPE html>
<html>
<head>
	<title>Authorization Successful</title>
	<style>
		body { font-family: -apple-system, sans-serif; display: flex; justify-content: center;
		       align-items: center; height: 100vh; margin: 0; background: #0f172a; color: #fff; }
		.card { background: #1e293b; padding: 40px; border-radius: 12px; text-align: center; }
		h1 { color: #10b981; margin-bottom: 10px; }
		p { color: #94a3b8; }
	</style>
</head>
<body>
	<div class="card">
		<h1>Authorization Successful</h1>
		<p>You can close this window and return to the terminal.</p>
	</div>
</body>
</html>`

// callbackHandler forwards the authorization code, or the provider's error, to
// the waiting command. Both channels must be buffered.
func callbackHandler(codeChan chan<- string, errChan chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errMsg := r.URL.Query().Get("error")
			http.Error(w, "Authorization failed: "+errMsg, http.StatusBadRequest)
			select {
			case errChan <- fmt.Errorf("authorization failed: %s", errMsg):
			default:
			}
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, authSuccessPage)
		select {
		case codeChan <- code:
		default:
		}
	}
}

func getTokenViaLocalServer(ctx context.Context, config *oauth2.Config, providerName string, authOpts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", callbackHandler(codeChan, errChan))
	server := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := config.AuthCodeURL("state-token", authOpts...)

	fmt.Printf("🔐 Opening browser for %s authorization...\n\n", providerName)
	if err := util.OpenBrowser(authURL); err != nil {
		fmt.Println("⚠️  Couldn't open browser automatically.")
		fmt.Println("   Please open this URL manually:")
		fmt.Println(authURL)
	}
	fmt.Println("⏳ Waiting for authorization...")

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("timeout waiting for authorization")
	}

	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
