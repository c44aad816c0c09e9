package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSessionStatusTaxonomy tests the mapping from HTTP responses onto the
// backend failure sentinels.
func TestSessionStatusTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "401 maps to ErrAuth",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantErr: ErrAuth,
		},
		{
			name: "403 with exhausted rate limit maps to ErrRateLimited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.WriteHeader(http.StatusForbidden)
			},
			wantErr: ErrRateLimited,
		},
		{
			name: "plain 403 maps to ErrAuth",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantErr: ErrAuth,
		},
		{
			name: "404 maps to ErrNotFound",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "429 maps to ErrRateLimited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantErr: ErrRateLimited,
		},
		{
			name: "500 maps to ErrNetwork",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			s := NewSession(Descriptor{Name: "test"}, nil)
			var out map[string]interface{}
			err := s.GetJSON(context.Background(), srv.URL, &out)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestSessionGetJSON(t *testing.T) {
	t.Run("decodes body and sends auth header", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"login":"acme"}`))
		}))
		defer srv.Close()

		s := NewSession(Descriptor{Name: "test"}, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer tok")
		})

		var out struct {
			Login string `json:"login"`
		}
		require.NoError(t, s.GetJSON(context.Background(), srv.URL, &out))
		assert.Equal(t, "acme", out.Login)
		assert.Equal(t, "Bearer tok", gotAuth)
	})

	t.Run("refused connection maps to ErrNetwork", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // refuse subsequent connections

		s := NewSession(Descriptor{Name: "test"}, nil)
		var out map[string]interface{}
		err := s.GetJSON(context.Background(), srv.URL, &out)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNetwork))
	})

	t.Run("malformed JSON maps to ErrNetwork", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		s := NewSession(Descriptor{Name: "test"}, nil)
		var out map[string]interface{}
		err := s.GetJSON(context.Background(), srv.URL, &out)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNetwork))
	})
}
