package nucleus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain", "https://gateway.ea.com", "https://gateway.ea.com", false},
		{"trailing slash", "https://gateway.ea.com/", "https://gateway.ea.com", false},
		{"path preserved", "https://gateway.ea.com/v2/", "https://gateway.ea.com/v2", false},
		{"whitespace trimmed", "  https://gateway.ea.com  ", "https://gateway.ea.com", false},
		{"missing scheme", "gateway.ea.com", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeBaseURL(tt.raw)
			if tt.wantErr {
				var cfgErr ConfigError
				require.ErrorAs(t, err, &cfgErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientSendsUserAgentAndBearer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "Bearer my-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"pid":{"pidId":"1"}}`))
	}))
	t.Cleanup(ts.Close)

	client, err := NewClient(Config{APIBaseURL: ts.URL, AccountsBaseURL: ts.URL})
	require.NoError(t, err)

	_, err = client.Identity.AccountInfo(context.Background(), "my-token")
	require.NoError(t, err)
}

func TestClientTrimsBearerWhitespace(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer my-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"pid":{"pidId":"1"}}`))
	}))
	t.Cleanup(ts.Close)

	client, err := NewClient(Config{APIBaseURL: ts.URL, AccountsBaseURL: ts.URL})
	require.NoError(t, err)

	_, err = client.Identity.AccountInfo(context.Background(), "  my-token  ")
	require.NoError(t, err)
}

func TestClientTransportErrorWrap(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client, err := NewClient(Config{APIBaseURL: url, AccountsBaseURL: url})
	require.NoError(t, err)

	_, err = client.Identity.AccountInfo(context.Background(), "my-token")
	var transportErr TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.NotNil(t, transportErr.Cause)
}

func TestClientContextCancellationSurfacesUnwrapped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(ts.Close)

	client, err := NewClient(Config{APIBaseURL: ts.URL, AccountsBaseURL: ts.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Identity.AccountInfo(ctx, "my-token")
	require.ErrorIs(t, err, context.Canceled)
}

func TestTelemetryHooksFire(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pid":{"pidId":"1"}}`))
	}))
	t.Cleanup(ts.Close)

	var requests, responses int
	client, err := NewClient(Config{
		APIBaseURL:      ts.URL,
		AccountsBaseURL: ts.URL,
		Telemetry: TelemetryHooks{
			OnHTTPRequest: func(ctx context.Context, req *http.Request) { requests++ },
			OnHTTPResponse: func(ctx context.Context, req *http.Request, resp *http.Response, err error, latency time.Duration) {
				responses++
			},
		},
	})
	require.NoError(t, err)

	_, err = client.Identity.AccountInfo(context.Background(), "my-token")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, responses)
}
