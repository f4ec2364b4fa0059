package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchanger_Exchange(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var gotGrant, gotID, gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.PostForm.Get("grant_type")
		gotID = r.PostForm.Get("client_id")
		gotSecret = r.PostForm.Get("client_secret")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	e := NewExchanger(srv.URL, WithClock(func() time.Time { return now }))

	token, err := e.Exchange(context.Background(), "my-id", "my-secret")
	require.NoError(t, err)

	assert.Equal(t, "client_credentials", gotGrant)
	assert.Equal(t, "my-id", gotID)
	assert.Equal(t, "my-secret", gotSecret)
	assert.Equal(t, "abc", token.AccessToken)

	// 3600s lifetime minus the 60s safety margin.
	assert.Equal(t, now.Add(3540*time.Second), token.ExpiresAt)
}

func TestExchanger_DefaultLifetimeWhenOmitted(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"abc"}`))
	}))
	defer srv.Close()

	e := NewExchanger(srv.URL, WithClock(func() time.Time { return now }))

	token, err := e.Exchange(context.Background(), "id", "secret")
	require.NoError(t, err)
	assert.Equal(t, now.Add(3600*time.Second-ExpiryMargin), token.ExpiresAt)
}

func TestExchanger_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid_client"}`, "status 401"},
		{"server error", http.StatusInternalServerError, "boom", "status 500"},
		{"missing access token", http.StatusOK, `{"expires_in":3600}`, "missing access_token"},
		{"malformed body", http.StatusOK, `not json`, "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			e := NewExchanger(srv.URL)
			_, err := e.Exchange(context.Background(), "id", "secret")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExchanger_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	e := NewExchanger(srv.URL)
	_, err := e.Exchange(context.Background(), "id", "secret")
	assert.Error(t, err)
}
