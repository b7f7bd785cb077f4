package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seen-ai/talentq"
)

func completionResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

func TestClient_Complete(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse(`{"score":90}`)))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "gpt-4o-mini", time.Second)
	out, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "score things"},
		{Role: "user", Content: "cv text"},
	}, true)
	require.NoError(t, err)
	require.Equal(t, `{"score":90}`, out)
	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "/chat/completions", gotPath)
	require.Equal(t, "gpt-4o-mini", gotReq["model"])
	require.Equal(t, map[string]any{"type": "json_object"}, gotReq["response_format"])
}

func TestClient_NonOKBecomesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", time.Second)
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, false)
	require.Error(t, err)
	var he *talentq.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusTooManyRequests, he.Status)
	require.True(t, talentq.Retryable(err))
}

func TestClient_ClientErrorNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", time.Second)
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, false)
	var he *talentq.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusUnauthorized, he.Status)
	require.False(t, talentq.Retryable(err))
}

func TestClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", time.Second)
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, false)
	require.ErrorContains(t, err, "no choices")
}
