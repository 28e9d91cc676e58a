package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	v := config.NewEmptyViper()
	v.Set("openai.api_key", "sk-test")
	v.Set("openai.base_url", srv.URL+"/v1")
	v.Set("openai.model_name", "gpt-test")
	v.Set("llm.timeout", timeout.String())

	logger := zap.NewNop()
	client, err := NewFactory(config.NewFromViper(v), logger, utils.NewTextProcessor(logger)).CreateClient()
	require.NoError(t, err)
	return client
}

func completion(content, finish string) string {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-test-0613",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
	})
	return string(body)
}

func TestOpenAIClient_Generate(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion(`{"similarity_score":95}`, "stop"))
	}, time.Minute)

	resp, err := client.Generate(context.Background(), &core.ModelRequest{
		Prompt: "compare these",
		Schema: core.ResponseSchema(),
	})
	require.NoError(t, err)

	assert.Equal(t, `{"similarity_score":95}`, resp.Text)
	assert.Equal(t, "gpt-test-0613", resp.Model)
	assert.Equal(t, "chatcmpl-1", resp.ID)

	assert.Equal(t, "gpt-test", got["model"])
	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])

	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "compare these", messages[1].(map[string]any)["content"])
}

func TestOpenAIClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, core.ErrModelUnavailable},
		{"rate limited", http.StatusTooManyRequests, core.ErrModelUnavailable},
		{"server error", http.StatusInternalServerError, core.ErrModelUnavailable},
		{"bad request", http.StatusBadRequest, core.ErrModelRefused},
		{"gateway timeout", http.StatusGatewayTimeout, core.ErrModelTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"error":{"message":"nope","type":"invalid_request_error"}}`)
			}, time.Minute)

			_, err := client.Generate(context.Background(), &core.ModelRequest{Prompt: "p"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var me *core.ModelError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, "openai", me.Provider)
		})
	}
}

func TestOpenAIClient_ContentFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion("", "content_filter"))
	}, time.Minute)

	_, err := client.Generate(context.Background(), &core.ModelRequest{Prompt: "p"})
	assert.ErrorIs(t, err, core.ErrModelRefused)
}

func TestOpenAIClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	_, err := client.Generate(context.Background(), &core.ModelRequest{Prompt: "p"})
	assert.ErrorIs(t, err, core.ErrModelTimeout)
}

func TestFactory_MissingAPIKey(t *testing.T) {
	logger := zap.NewNop()
	_, err := NewFactory(config.NewFromViper(config.NewEmptyViper()), logger, utils.NewTextProcessor(logger)).CreateClient()

	var cfgErr *core.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "openai.api_key", cfgErr.Input)
}

func TestResponseFormat_WithoutSchema(t *testing.T) {
	format := responseFormat(nil)
	assert.EqualValues(t, "json_object", format.Type)
	assert.Nil(t, format.JSONSchema)
}
