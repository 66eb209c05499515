package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// exchangeTimeout bounds the code exchange plus the userinfo call.
const exchangeTimeout = 10 * time.Second

// GoogleUser is the portion of Google's userinfo response we keep.
// Subject is the stable account identifier; Name is display-only.
type GoogleUser struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
}

// GoogleProvider wraps golang.org/x/oauth2 for Google's authorization code flow.
//
//  1. AuthURL sends the browser to Google's consent screen with a state value.
//  2. Google redirects back to the callback with ?code=...&state=...
//  3. Exchange trades the code for a token server-to-server and reads the
//     userinfo endpoint with it.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a GoogleProvider. callbackURL must match the
// redirect URI registered for the OAuth client exactly.
//
// Only the "profile" scope is requested; the board never needs an email.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// WithEndpoints points the provider at alternative token and userinfo URLs.
// Used by tests to stand in an httptest server for Google.
func (p *GoogleProvider) WithEndpoints(authURL, tokenURL, userInfoURL string) *GoogleProvider {
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:   authURL,
		TokenURL:  tokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.userInfoURL = userInfoURL
	return p
}

// AuthURL returns the consent URL for the given CSRF state.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow and returns the verified Google identity.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo returned status %d", resp.StatusCode)
	}

	var u GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo: %w", err)
	}
	if u.Subject == "" {
		return nil, fmt.Errorf("auth: Google returned a profile without a subject")
	}

	return &u, nil
}
