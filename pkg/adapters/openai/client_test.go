package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{APIKey: "  "})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model       string          `json:"model"`
			Messages    []ports.Message `json:"messages"`
			Temperature float64         `json:"temperature"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultModel, body.Model)
		assert.InDelta(t, DefaultTemperature, body.Temperature, 1e-9)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "Query: hi", body.Messages[1].Content)

		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "{\"action\": \"direct\"}"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), []ports.Message{
		{Role: ports.RoleSystem, Content: "sys"},
		{Role: ports.RoleUser, Content: "Query: hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"action": "direct"}`, out)
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "http error", status: http.StatusTooManyRequests, body: `{"error": "rate limited"}`, want: "status 429"},
		{name: "no choices", status: http.StatusOK, body: `{"choices": []}`, want: "no content"},
		{name: "bad json", status: http.StatusOK, body: `not json`, want: "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = c.Complete(context.Background(), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEmbed_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": [{"index": 1, "embedding": [0, 1]}, {"index": 0, "embedding": [1, 0]}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, vecs)

	vecs, err = c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
