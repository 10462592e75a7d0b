package nucleus

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// defaultExpiryHorizon is applied when the provider issues a token without an
// expiry (captured and manually supplied tokens).
const defaultExpiryHorizon = 3600 * time.Second

// expirySkew is how close to expiry a credential counts as expiring soon.
const expirySkew = 5 * time.Minute

// Credential is the stored result of any acquisition path. It is replaced
// wholesale on refresh, never partially updated.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id,omitempty"`
}

// IsExpired reports whether the credential is past its expiry.
func (c Credential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsExpiringSoon reports whether the credential expires within the skew
// window. An expired credential is also expiring soon.
func (c Credential) IsExpiringSoon(now time.Time) bool {
	return !now.Add(expirySkew).Before(c.ExpiresAt)
}

// newCredential builds a credential from a raw token. expiresIn <= 0 falls
// back to the token's own exp claim when it is a JWT, then to the default
// horizon.
func newCredential(token, refreshToken string, expiresIn time.Duration, now time.Time) Credential {
	expiresAt := now.Add(defaultExpiryHorizon)
	switch {
	case expiresIn > 0:
		expiresAt = now.Add(expiresIn)
	default:
		if exp, ok := jwtExpiry(token); ok && exp.After(now) {
			expiresAt = exp
		}
	}
	return Credential{
		AccessToken:  strings.TrimSpace(token),
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
}

// credentialFromOAuthToken converts an oauth2 token endpoint result. The
// token's own expiry stamp wins when the provider supplied one.
func credentialFromOAuthToken(tok *oauth2.Token, now time.Time) Credential {
	cred := newCredential(tok.AccessToken, tok.RefreshToken, 0, now)
	if !tok.Expiry.IsZero() {
		cred.ExpiresAt = tok.Expiry
	}
	return cred
}

// jwtExpiry extracts the exp claim from a JWT-shaped token without verifying
// the signature. Liveness still comes from the introspection endpoint; this
// only seeds a better expiry than the default horizon.
func jwtExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") < 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
