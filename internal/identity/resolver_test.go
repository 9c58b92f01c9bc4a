package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelf-works/shelf/internal/domain"
)

func TestClient_ResolveToken(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves sub claim", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"sub":"user-42"}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		userID, err := client.ResolveToken(ctx, "good-token")
		require.NoError(t, err)
		assert.Equal(t, "user-42", userID)
	})

	t.Run("falls back to id claim", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"user-99"}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		userID, err := client.ResolveToken(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "user-99", userID)
	})

	t.Run("rejected token maps to ErrInvalidToken", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		_, err := client.ResolveToken(ctx, "bad-token")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("empty token rejected without a request", func(t *testing.T) {
		client := NewClient("http://unused.invalid")
		_, err := client.ResolveToken(ctx, "")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("empty claims rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		_, err := client.ResolveToken(ctx, "token")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("caches successful resolutions", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(`{"sub":"user-42"}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		for i := 0; i < 3; i++ {
			_, err := client.ResolveToken(ctx, "token")
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestStaticResolver(t *testing.T) {
	ctx := context.Background()
	resolver := &StaticResolver{Token: "dev-token", UserID: "dev-user"}

	userID, err := resolver.ResolveToken(ctx, "dev-token")
	require.NoError(t, err)
	assert.Equal(t, "dev-user", userID)

	_, err = resolver.ResolveToken(ctx, "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	empty := &StaticResolver{}
	_, err = empty.ResolveToken(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
