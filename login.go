package nucleus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// The credential-exchange path drives the provider's hosted login page
// directly: fetch it, lift the two session tokens out of the markup, post the
// credentials, then trade the resulting authorization code for a bearer
// token. The page is undocumented and versioned, so the extraction is
// best-effort: the patterns accept both hidden-input and embedded-JSON forms
// of the two named tokens and nothing beyond that.

const loginBodyLimit = 2 << 20

var (
	executionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`name="execution"\s+value="([^"]+)"`),
		regexp.MustCompile(`"execution"\s*:\s*"([^"]+)"`),
	}
	csrfPatterns = []*regexp.Regexp{
		regexp.MustCompile(`name="_csrf"\s+value="([^"]+)"`),
		regexp.MustCompile(`"csrf_token"\s*:\s*"([^"]+)"`),
	}
	authCodePattern = regexp.MustCompile(`code=([A-Za-z0-9._~-]+)`)
)

// loginFailureMarkers are the known failure signals the login page embeds in
// its response body, checked case-insensitively before any code extraction.
var loginFailureMarkers = []struct {
	marker string
	err    error
}{
	{"captcha", ErrCaptchaRequired},
	{"two-factor", ErrTwoFactorRequired},
	{"twofactor", ErrTwoFactorRequired},
	{"security code", ErrTwoFactorRequired},
	{"account is locked", ErrAccountLocked},
	{"too many attempts", ErrAccountLocked},
	{"credentials are incorrect", ErrInvalidCredentials},
	{"invalid credentials", ErrInvalidCredentials},
	{"incorrect email or password", ErrInvalidCredentials},
}

// passwordLogin performs the three-step exchange: login-page init, credential
// submit, and authorization-code exchange. Any step that cannot find its
// expected token or code is a hard failure.
func (a *Authenticator) passwordLogin(ctx context.Context, email, password string) (*oauth2.Token, error) {
	loginClient, err := a.newLoginClient()
	if err != nil {
		return nil, err
	}

	// Step 1: open the authorize URL and follow it to the login page.
	state := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.oauth.AuthCodeURL(state), nil)
	if err != nil {
		return nil, err
	}
	resp, err := loginClient.Do(req)
	if err != nil {
		return nil, TransportError{Message: "login init failed", Cause: err}
	}
	defer drainAndClose(resp.Body)

	if code := codeFromResponse(resp); code != "" {
		// An existing provider session skipped the form entirely.
		return a.exchangeCode(ctx, code)
	}
	if resp.StatusCode >= 500 {
		return nil, ServerError{Status: resp.StatusCode}
	}
	page, err := io.ReadAll(io.LimitReader(resp.Body, loginBodyLimit))
	if err != nil {
		return nil, TransportError{Message: "reading login page", Cause: err}
	}
	execution := firstPatternMatch(executionPatterns, page)
	if execution == "" {
		return nil, DecodeError{Message: "login page missing execution token"}
	}
	csrf := firstPatternMatch(csrfPatterns, page)
	if csrf == "" {
		return nil, DecodeError{Message: "login page missing anti-forgery token"}
	}

	// Step 2: submit the credentials with both extracted tokens.
	form := url.Values{
		"email":     {email},
		"password":  {password},
		"execution": {execution},
		"_csrf":     {csrf},
		"_eventId":  {"submit"},
	}
	submitURL := resp.Request.URL.String()
	submitReq, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	submitReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	submitResp, err := loginClient.Do(submitReq)
	if err != nil {
		return nil, TransportError{Message: "login submit failed", Cause: err}
	}
	defer drainAndClose(submitResp.Body)
	if submitResp.StatusCode >= 500 {
		return nil, ServerError{Status: submitResp.StatusCode}
	}

	code := codeFromResponse(submitResp)
	if code == "" {
		body, err := io.ReadAll(io.LimitReader(submitResp.Body, loginBodyLimit))
		if err != nil {
			return nil, TransportError{Message: "reading login response", Cause: err}
		}
		if err := scanLoginFailure(body); err != nil {
			return nil, err
		}
		if m := authCodePattern.FindSubmatch(body); m != nil {
			code = string(m[1])
		}
	}
	if code == "" {
		return nil, fmt.Errorf("%w: login flow produced no authorization code", ErrNoToken)
	}

	// Step 3: standard OAuth code exchange.
	return a.exchangeCode(ctx, code)
}

// newLoginClient builds an HTTP client for the scraping flow: it keeps the
// provider's session cookies and stops following redirects once the flow
// reaches the registered redirect URI, so the authorization code can be read
// off the Location header.
func (a *Authenticator) newLoginClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	redirectURI := a.oauth.RedirectURL
	return &http.Client{
		Transport: a.httpClient.Transport,
		Timeout:   a.httpClient.Timeout,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if strings.HasPrefix(req.URL.String(), redirectURI) {
				return http.ErrUseLastResponse
			}
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}, nil
}

func (a *Authenticator) exchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, ServerError{Status: retrieveErr.Response.StatusCode}
		}
		return nil, TransportError{Message: "authorization code exchange failed", Cause: err}
	}
	return tok, nil
}

// codeFromResponse pulls the authorization code from a redirect Location
// header, or from the final request URL when the client already landed on
// the redirect URI.
func codeFromResponse(resp *http.Response) string {
	if loc := resp.Header.Get("Location"); loc != "" {
		if u, err := url.Parse(loc); err == nil {
			if code := u.Query().Get("code"); code != "" {
				return code
			}
		}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.Query().Get("code")
	}
	return ""
}

func firstPatternMatch(patterns []*regexp.Regexp, body []byte) string {
	for _, p := range patterns {
		if m := p.FindSubmatch(body); m != nil {
			return string(m[1])
		}
	}
	return ""
}

func scanLoginFailure(body []byte) error {
	lower := strings.ToLower(string(body))
	for _, f := range loginFailureMarkers {
		if strings.Contains(lower, f.marker) {
			return f.err
		}
	}
	return nil
}
