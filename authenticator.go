package nucleus

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/nucleusid/nucleus-go/routes"
)

const (
	defaultClientID    = "NUCLEUS_PC"
	defaultRedirectURL = "nucleus://login/success"
)

// AuthenticatorConfig wires the pieces the Authenticator needs. Only Client
// is required; the zero value of everything else gets a sensible default.
type AuthenticatorConfig struct {
	// Client is the API client used for introspection and identity lookups.
	Client *Client
	// Store persists the credential. Defaults to an in-memory store.
	Store CredentialStore
	// Capturer is the interactive capture mechanism. Optional; without it
	// AcquireTokenInteractively fails with a ConfigError.
	Capturer TokenCapturer
	// ClientID, ClientSecret, RedirectURL, and Scopes configure the OAuth
	// consumer. Token and authorize endpoints derive from the client's
	// accounts base URL.
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// ValidateManualTokens runs an introspection call before a manually
	// supplied token is stored.
	ValidateManualTokens bool
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Authenticator owns the single credential slot: it orchestrates the three
// acquisition paths, decides at call time whether the stored credential is
// still usable, drives the one-shot refresh, and exposes identity lookups
// bound to the managed token.
type Authenticator struct {
	client     *Client
	store      CredentialStore
	capturer   TokenCapturer
	oauth      oauth2.Config
	httpClient *http.Client
	now        func() time.Time

	validateManual bool

	// mu serializes credential writes so refreshes and logouts do not
	// interleave; readers always observe a fully written credential.
	mu sync.Mutex
}

// NewAuthenticator validates the configuration and returns an Authenticator.
func NewAuthenticator(cfg AuthenticatorConfig) (*Authenticator, error) {
	if cfg.Client == nil {
		return nil, ConfigError{Reason: "client is required"}
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}
	redirectURL := cfg.RedirectURL
	if redirectURL == "" {
		redirectURL = defaultRedirectURL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Authenticator{
		client:   cfg.Client,
		store:    store,
		capturer: cfg.Capturer,
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.Client.accountsURL(routes.ConnectAuth),
				TokenURL:  cfg.Client.accountsURL(routes.ConnectToken),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient:     cfg.Client.httpClient,
		now:            now,
		validateManual: cfg.ValidateManualTokens,
	}, nil
}

// AcquireTokenInteractively hands control to the capture mechanism and waits
// for the first resolution: a token, ErrCancelled, or a capture failure. The
// captured token carries no provider expiry, so the credential gets the
// default horizon (or the token's own exp claim when it is a JWT).
func (a *Authenticator) AcquireTokenInteractively(ctx context.Context) (string, error) {
	if a.capturer == nil {
		return "", ConfigError{Reason: "no token capturer configured"}
	}
	token, err := a.capturer.Capture(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrNoToken
	}
	cred := newCredential(token, "", 0, a.now())
	if err := a.saveCredential(cred); err != nil {
		return "", err
	}
	a.client.telemetry.log(ctx, LogLevelInfo, "token captured interactively", nil)
	return cred.AccessToken, nil
}

// AcquireTokenWithCredentials runs the email/password exchange and stores the
// resulting credential.
func (a *Authenticator) AcquireTokenWithCredentials(ctx context.Context, email, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", ConfigError{Reason: "email and password are required"}
	}
	tok, err := a.passwordLogin(ctx, email, password)
	if err != nil {
		return "", err
	}
	cred := credentialFromOAuthToken(tok, a.now())
	if err := a.saveCredential(cred); err != nil {
		return "", err
	}
	a.client.telemetry.log(ctx, LogLevelInfo, "token acquired via credential login", nil)
	return cred.AccessToken, nil
}

// SetManualToken stores a token the caller already possesses, optionally
// validating it first. A validated token's expiry and user id are seeded from
// the introspection result.
func (a *Authenticator) SetManualToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoToken
	}
	cred := newCredential(token, "", 0, a.now())
	if a.validateManual {
		info, err := a.client.Auth.Validate(ctx, token)
		if err != nil {
			return err
		}
		if info.ExpiresIn > 0 {
			cred = newCredential(token, "", time.Duration(info.ExpiresIn)*time.Second, a.now())
		}
		cred.UserID = info.UserID.String()
	}
	return a.saveCredential(cred)
}

// GetUsableToken returns a bearer token that is safe to use right now.
// Absent credential: ErrNoToken. Fresh credential: the stored token. Expiring
// or expired with a refresh token: exactly one refresh attempt, replacing the
// credential wholesale. Anything else: ErrSessionExpired without touching the
// network.
func (a *Authenticator) GetUsableToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cred, ok, err := a.store.Load()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoToken
	}
	now := a.now()
	if !cred.IsExpiringSoon(now) {
		return cred.AccessToken, nil
	}
	if cred.RefreshToken == "" {
		return "", ErrSessionExpired
	}
	refreshed, err := a.refresh(ctx, cred)
	if err != nil {
		return "", err
	}
	if err := a.store.Save(refreshed); err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// refresh runs the OAuth refresh-token grant once. Failure means the session
// is gone and the caller must re-authenticate interactively.
func (a *Authenticator) refresh(ctx context.Context, cred Credential) (Credential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	src := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		a.client.telemetry.log(ctx, LogLevelError, "token refresh failed", map[string]any{"error": err.Error()})
		return Credential{}, fmt.Errorf("%w: refresh failed: %v", ErrSessionExpired, err)
	}
	refreshed := credentialFromOAuthToken(tok, a.now())
	if refreshed.RefreshToken == "" {
		// Providers may omit the refresh token on rotation; keep ours.
		refreshed.RefreshToken = cred.RefreshToken
	}
	refreshed.UserID = cred.UserID
	return refreshed, nil
}

// Logout clears the stored credential. It is idempotent and never fails;
// a store error is reported through telemetry only.
func (a *Authenticator) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Clear(); err != nil {
		a.client.telemetry.log(context.Background(), LogLevelError, "logout: clearing credential failed", map[string]any{"error": err.Error()})
	}
}

// IsAuthenticated reports whether a non-expired credential is stored. It
// performs no network calls.
func (a *Authenticator) IsAuthenticated() bool {
	cred, ok, err := a.store.Load()
	if err != nil || !ok {
		return false
	}
	return !cred.IsExpired(a.now())
}

// GetFullIdentity resolves a usable token and assembles the full identity
// record.
func (a *Authenticator) GetFullIdentity(ctx context.Context) (Identity, error) {
	token, err := a.GetUsableToken(ctx)
	if err != nil {
		return Identity{}, err
	}
	return a.client.Identity.FullIdentity(ctx, token)
}

// GetAccountID returns the master account id for the managed credential.
func (a *Authenticator) GetAccountID(ctx context.Context) (string, error) {
	token, err := a.GetUsableToken(ctx)
	if err != nil {
		return "", err
	}
	return a.client.Identity.AccountID(ctx, token)
}

// GetPersonaID returns the persona id for the managed credential.
func (a *Authenticator) GetPersonaID(ctx context.Context) (string, error) {
	token, err := a.GetUsableToken(ctx)
	if err != nil {
		return "", err
	}
	return a.client.Identity.PersonaID(ctx, token)
}

// GetPublicUsername returns the public username for the managed credential.
func (a *Authenticator) GetPublicUsername(ctx context.Context) (string, error) {
	token, err := a.GetUsableToken(ctx)
	if err != nil {
		return "", err
	}
	return a.client.Identity.PublicUsername(ctx, token)
}

func (a *Authenticator) saveCredential(cred Credential) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Save(cred)
}
