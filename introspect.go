package nucleus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/nucleusid/nucleus-go/routes"
)

// AuthClient groups token validation helpers.
type AuthClient struct {
	client *Client
}

// TokenInfo is the introspection result. Every field is optional: a 2xx
// response that decodes to all-zero values is still a valid token.
type TokenInfo struct {
	AccessToken string  `json:"access_token,omitempty"`
	TokenType   string  `json:"token_type,omitempty"`
	ClientID    string  `json:"client_id,omitempty"`
	ExpiresIn   FlexInt `json:"expires_in,omitempty"`
	Scope       string  `json:"scope,omitempty"`
	UserID      FlexID  `json:"pid_id,omitempty"`
}

// Validate confirms token liveness against the introspection endpoint.
// 400 and 401 mean the token is dead (ErrInvalidToken); any other non-2xx is
// a ServerError. Validate has no side effects; callers decide whether to
// persist anything from the result.
func (a *AuthClient) Validate(ctx context.Context, token string) (TokenInfo, error) {
	if a == nil || a.client == nil {
		return TokenInfo{}, ConfigError{Reason: "auth client not initialized"}
	}
	endpoint := a.client.accountsURL(routes.ConnectTokenInfo) + "?access_token=" + url.QueryEscape(token)
	req, err := a.client.newRequest(ctx, http.MethodGet, endpoint, "")
	if err != nil {
		return TokenInfo{}, err
	}
	resp, err := a.client.send(req)
	if err != nil {
		return TokenInfo{}, err
	}
	defer drainAndClose(resp.Body)
	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return TokenInfo{}, ErrInvalidToken
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return TokenInfo{}, ServerError{Status: resp.StatusCode}
	}
	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return TokenInfo{}, DecodeError{Message: "introspection payload", Cause: err}
	}
	return info, nil
}

// TestToken is a cheap liveness probe against the identity endpoint itself.
// Only the 2xx/non-2xx split matters; decode problems and transport failures
// both report false.
func (a *AuthClient) TestToken(ctx context.Context, token string) bool {
	if a == nil || a.client == nil {
		return false
	}
	req, err := a.client.newRequest(ctx, http.MethodGet, a.client.apiURL(routes.IdentityMe), token)
	if err != nil {
		return false
	}
	resp, err := a.client.send(req)
	if err != nil {
		return false
	}
	defer drainAndClose(resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
