package outreach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhook_PostsChannelPayload(t *testing.T) {
	var got []webhookPayload
	keys := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		keys[r.Header.Get("Idempotency-Key")] = true
		var p webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		got = append(got, p)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "secret")
	require.NoError(t, w.SendEmail(context.Background(), Email{To: "a@b.co", Subject: "s", Body: "b"}))
	require.NoError(t, w.Call(context.Background(), Call{To: "5550100", Script: "hi"}))

	require.Len(t, got, 2)
	assert.Equal(t, "email", got[0].Channel)
	assert.Equal(t, "s", got[0].Subject)
	assert.Equal(t, "voice", got[1].Channel)
	assert.Equal(t, "hi", got[1].Script)
	assert.Len(t, keys, 2)
}

func TestWebhook_NonSuccessIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mailbox full", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "").SendEmail(context.Background(), Email{To: "a@b.co"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox full")
}
