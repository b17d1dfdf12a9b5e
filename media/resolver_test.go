package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolverServer(t *testing.T, status int, body string, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveDiscriminatesStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Resolution
	}{
		{
			name: "redirect",
			body: `{"status":"redirect","url":"https://x/a.mp4"}`,
			want: Single{URL: "https://x/a.mp4"},
		},
		{
			name: "tunnel",
			body: `{"status":"tunnel","url":"https://x/t.mp4","filename":"t.mp4"}`,
			want: Single{URL: "https://x/t.mp4"},
		},
		{
			name: "picker keeps order and drops empty urls",
			body: `{"status":"picker","picker":[{"type":"photo","url":"https://x/a.jpg"},{"type":"photo"},{"type":"video","url":"https://x/b.mp4"}]}`,
			want: Carousel{Items: []Item{
				{URL: "https://x/a.jpg", Type: "photo"},
				{URL: "https://x/b.mp4", Type: "video"},
			}},
		},
		{
			name: "error",
			body: `{"status":"error","error":{"code":"invalid"},"text":"bad link"}`,
			want: Failure{Code: "invalid", Message: "bad link"},
		},
		{
			name: "error without details",
			body: `{"status":"error"}`,
			want: Failure{Code: "unknown", Message: "Unknown error"},
		},
		{
			name: "redirect without url",
			body: `{"status":"redirect"}`,
			want: Failure{Code: "empty", Message: "resolver returned no download url"},
		},
		{
			name: "picker without usable items",
			body: `{"status":"picker","picker":[{"type":"photo"}]}`,
			want: Failure{Code: "empty", Message: "resolver returned no carousel items"},
		},
		{
			name: "unknown status",
			body: `{"status":"local-processing"}`,
			want: Unrecognized{Status: "local-processing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newResolverServer(t, http.StatusOK, tt.body, nil)
			r := NewResolver(srv.Client(), ResolverConfig{BaseURL: srv.URL})

			got, err := r.Resolve(context.Background(), "https://www.instagram.com/p/abc/")

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRequestContract(t *testing.T) {
	var (
		gotMethod string
		gotHeader http.Header
		gotBody   map[string]string
	)
	srv := newResolverServer(t, http.StatusOK, `{"status":"redirect","url":"https://x/a.mp4"}`, func(r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	})

	r := NewResolver(srv.Client(), ResolverConfig{
		BaseURL:      srv.URL,
		APIKey:       "secret",
		BypassHeader: "X-Bypass",
		BypassValue:  "letmein",
		UserAgent:    "boomerbox/1.0",
	})
	_, err := r.Resolve(context.Background(), "https://instagram.com/reel/xyz")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotHeader.Get("Accept"))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "Api-Key secret", gotHeader.Get("Authorization"))
	assert.Equal(t, "letmein", gotHeader.Get("X-Bypass"))
	assert.Equal(t, "boomerbox/1.0", gotHeader.Get("User-Agent"))
	assert.Equal(t, map[string]string{"url": "https://instagram.com/reel/xyz", "videoQuality": "1080"}, gotBody)
}

func TestResolveOmitsOptionalHeaders(t *testing.T) {
	var gotHeader http.Header
	srv := newResolverServer(t, http.StatusOK, `{"status":"redirect","url":"u"}`, func(r *http.Request) {
		gotHeader = r.Header.Clone()
	})

	r := NewResolver(srv.Client(), ResolverConfig{BaseURL: srv.URL, BypassHeader: "X-Bypass"})
	_, err := r.Resolve(context.Background(), "https://instagram.com/p/1")
	require.NoError(t, err)

	assert.Empty(t, gotHeader.Get("Authorization"))
	assert.Empty(t, gotHeader.Get("X-Bypass"), "bypass header needs both name and value")
}

func TestResolveTransportFailures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv := newResolverServer(t, http.StatusForbidden, `{"status":"error"}`, nil)
		_, err := NewResolver(srv.Client(), ResolverConfig{BaseURL: srv.URL}).Resolve(context.Background(), "u")
		require.ErrorIs(t, err, ErrTransport)
	})

	t.Run("malformed json", func(t *testing.T) {
		srv := newResolverServer(t, http.StatusOK, `<html>challenge</html>`, nil)
		_, err := NewResolver(srv.Client(), ResolverConfig{BaseURL: srv.URL}).Resolve(context.Background(), "u")
		require.ErrorIs(t, err, ErrTransport)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := newResolverServer(t, http.StatusOK, "", nil)
		url := srv.URL
		srv.Close()
		_, err := NewResolver(http.DefaultClient, ResolverConfig{BaseURL: url}).Resolve(context.Background(), "u")
		require.ErrorIs(t, err, ErrTransport)
	})

	t.Run("timeout", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(func() {
			close(block)
			srv.Close()
		})

		r := NewResolver(srv.Client(), ResolverConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
		_, err := r.Resolve(context.Background(), "u")
		require.ErrorIs(t, err, ErrTransport)
	})
}

func TestFailureIsError(t *testing.T) {
	var err error = Failure{Code: "invalid", Message: "bad link"}
	assert.Equal(t, "cobalt error: invalid - bad link", err.Error())
	assert.ErrorIs(t, fmt.Errorf("resolve: %w", err), ErrResolver)
}
