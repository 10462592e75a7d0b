package nucleus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityServer serves the account endpoint with a fixed payload and the
// persona endpoint with whatever the test plugs in.
type identityServer struct {
	*httptest.Server
	accountBody   string
	accountStatus int
	personaBody   string
	personaStatus int
	personaType   string
	personaHits   int
}

func newIdentityServer(t *testing.T) *identityServer {
	t.Helper()
	s := &identityServer{
		accountBody:   `{"pid":{"pidId":"1234567890","status":"ACTIVE","country":"US"}}`,
		accountStatus: http.StatusOK,
		personaStatus: http.StatusOK,
		personaType:   "application/json",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/proxy/identity/pids/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.accountStatus)
		_, _ = w.Write([]byte(s.accountBody))
	})
	mux.HandleFunc("/proxy/identity/pids/", func(w http.ResponseWriter, r *http.Request) {
		s.personaHits++
		w.Header().Set("Content-Type", s.personaType)
		w.WriteHeader(s.personaStatus)
		_, _ = w.Write([]byte(s.personaBody))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *identityServer) client(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(Config{APIBaseURL: s.URL, AccountsBaseURL: s.URL})
	require.NoError(t, err)
	return client
}

func TestFullIdentityAcrossPersonaShapes(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{
			name:        "nested envelope",
			contentType: "application/json",
			body:        `{"personas":{"persona":[{"personaId":9876543210,"displayName":"TestPlayer","name":"TestPlayer"}]}}`,
		},
		{
			name:        "flat array",
			contentType: "application/json",
			body:        `{"personas":[{"personaId":9876543210,"displayName":"TestPlayer"}]}`,
		},
		{
			name:        "bare object",
			contentType: "application/json",
			body:        `{"personaId":9876543210,"displayName":"TestPlayer"}`,
		},
		{
			name:        "string persona id",
			contentType: "application/json",
			body:        `{"personas":{"persona":[{"personaId":"9876543210","displayName":"TestPlayer"}]}}`,
		},
		{
			name:        "xml payload",
			contentType: "application/xml",
			body:        `<users><user><userId>1234567890</userId><personaId>9876543210</personaId><EAID>TestPlayer</EAID></user></users>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newIdentityServer(t)
			server.personaBody = tt.body
			server.personaType = tt.contentType

			identity, err := server.client(t).Identity.FullIdentity(context.Background(), "test-token")
			require.NoError(t, err)
			assert.Equal(t, Identity{
				AccountID:      "1234567890",
				PersonaID:      "9876543210",
				PublicUsername: "TestPlayer",
				Status:         "ACTIVE",
				Country:        "US",
			}, identity)
		})
	}
}

func TestFirstPersonaEntryIsAuthoritative(t *testing.T) {
	server := newIdentityServer(t)
	server.personaBody = `{"personas":{"persona":[
		{"personaId":1,"displayName":"First"},
		{"personaId":2,"displayName":"Second"}]}}`

	identity, err := server.client(t).Identity.FullIdentity(context.Background(), "test-token")
	require.NoError(t, err)
	assert.Equal(t, "1", identity.PersonaID)
	assert.Equal(t, "First", identity.PublicUsername)
}

func TestAccountInfoStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "401 invalid token",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrInvalidToken)
			},
		},
		{
			name:   "429 rate limited",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrRateLimited)
			},
		},
		{
			name:   "503 http error with body",
			status: http.StatusServiceUnavailable,
			body:   "upstream down",
			check: func(t *testing.T, err error) {
				var httpErr HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, http.StatusServiceUnavailable, httpErr.Status)
				assert.Equal(t, "upstream down", httpErr.Body)
			},
		},
		{
			name:   "garbled body decode error",
			status: http.StatusOK,
			body:   `{"pid":`,
			check: func(t *testing.T, err error) {
				var decodeErr DecodeError
				require.ErrorAs(t, err, &decodeErr)
			},
		},
		{
			name:   "missing pidId",
			status: http.StatusOK,
			body:   `{"pid":{"status":"ACTIVE"}}`,
			check: func(t *testing.T, err error) {
				var missing MissingFieldError
				require.ErrorAs(t, err, &missing)
				assert.Equal(t, "pidId", missing.Field)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newIdentityServer(t)
			server.accountStatus = tt.status
			server.accountBody = tt.body

			token := "test-token"
			if tt.status == http.StatusUnauthorized {
				token = "wrong-token"
			}
			_, err := server.client(t).Identity.AccountInfo(context.Background(), token)
			tt.check(t, err)
		})
	}
}

func TestFullIdentityStopsAfterAccountFailure(t *testing.T) {
	server := newIdentityServer(t)

	_, err := server.client(t).Identity.FullIdentity(context.Background(), "wrong-token")
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Zero(t, server.personaHits, "persona endpoint must not be called after an account failure")
}

func TestFullIdentityNoPartialResult(t *testing.T) {
	server := newIdentityServer(t)
	server.personaStatus = http.StatusInternalServerError
	server.personaBody = "boom"

	identity, err := server.client(t).Identity.FullIdentity(context.Background(), "test-token")
	require.Error(t, err)
	assert.Equal(t, Identity{}, identity)
	assert.Equal(t, 1, server.personaHits)
}

func TestPersonaMissingFieldSemantics(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no matching shape", `{"something":"else"}`},
		{"entry without personaId", `{"personas":{"persona":[{"displayName":"TestPlayer"}]}}`},
		{"empty flat array", `{"personas":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newIdentityServer(t)
			server.personaBody = tt.body

			_, err := server.client(t).Identity.PersonaInfo(context.Background(), "1234567890", "test-token")
			var missing MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, "personaId", missing.Field)
		})
	}
}

func TestPersonaUnparseableIDIsDecodeError(t *testing.T) {
	server := newIdentityServer(t)
	server.personaBody = `{"personaId":true,"displayName":"TestPlayer"}`

	_, err := server.client(t).Identity.PersonaInfo(context.Background(), "1234567890", "test-token")
	var decodeErr DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestPersonaUsernameFallbackOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"display name wins", `{"personaId":1,"displayName":"Display","name":"Name","pidId":"77"}`, "Display"},
		{"name next", `{"personaId":1,"name":"Name","pidId":"77"}`, "Name"},
		{"entry account id next", `{"personaId":1,"pidId":"77"}`, "77"},
		{"lookup id last resort", `{"personaId":1}`, "1234567890"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newIdentityServer(t)
			server.personaBody = tt.body

			persona, err := server.client(t).Identity.PersonaInfo(context.Background(), "1234567890", "test-token")
			require.NoError(t, err)
			assert.Equal(t, tt.want, persona.PublicUsername)
		})
	}
}

func TestIdentityProjections(t *testing.T) {
	server := newIdentityServer(t)
	server.personaBody = `{"personas":{"persona":[{"personaId":9876543210,"displayName":"TestPlayer"}]}}`
	client := server.client(t)
	ctx := context.Background()

	accountID, err := client.Identity.AccountID(ctx, "test-token")
	require.NoError(t, err)
	assert.Equal(t, "1234567890", accountID)

	personaID, err := client.Identity.PersonaID(ctx, "test-token")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", personaID)

	username, err := client.Identity.PublicUsername(ctx, "test-token")
	require.NoError(t, err)
	assert.Equal(t, "TestPlayer", username)
}

func TestFullIdentityAccountIDCrossCheck(t *testing.T) {
	server := newIdentityServer(t)
	server.personaBody = `{"personaId":1,"pidId":"9999999999"}`

	_, err := server.client(t).Identity.FullIdentity(context.Background(), "test-token")
	var decodeErr DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Message, "mismatch")
}
