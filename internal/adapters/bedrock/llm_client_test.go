package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInvoker struct {
	body  string
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func newTestClient(invoker *fakeInvoker, modelID string) *BedrockClient {
	logger := zap.NewNop()
	return NewBedrockClient(invoker, modelID, 512, 0.1, 0.9, time.Minute, 0, logger, utils.NewTextProcessor(logger))
}

func TestBedrockClient_Anthropic(t *testing.T) {
	invoker := &fakeInvoker{body: `{"content":[{"type":"text","text":"{\"similarity_score\": 40}"}],"stop_reason":"end_turn"}`}
	client := newTestClient(invoker, "anthropic.claude-3-haiku-20240307-v1:0")

	resp, err := client.Generate(context.Background(), &core.ModelRequest{Prompt: "compare these"})
	require.NoError(t, err)
	assert.Equal(t, `{"similarity_score": 40}`, resp.Text)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", resp.Model)

	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", aws.ToString(invoker.input.ModelId))
	var payload map[string]any
	require.NoError(t, json.Unmarshal(invoker.input.Body, &payload))
	assert.Equal(t, anthropicVersion, payload["anthropic_version"])
	assert.EqualValues(t, 512, payload["max_tokens"])
	messages := payload["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	assert.Equal(t, "compare these", content[0].(map[string]any)["text"])
}

func TestBedrockClient_Titan(t *testing.T) {
	invoker := &fakeInvoker{body: `{"results":[{"outputText":"{}","completionReason":"FINISH"}]}`}
	client := newTestClient(invoker, "amazon.titan-text-express-v1")

	resp, err := client.Generate(context.Background(), &core.ModelRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(invoker.input.Body, &payload))
	assert.Equal(t, "p", payload["inputText"])
}

func TestBedrockClient_TitanFiltered(t *testing.T) {
	invoker := &fakeInvoker{body: `{"results":[{"outputText":"","completionReason":"CONTENT_FILTERED"}]}`}
	_, err := newTestClient(invoker, "amazon.titan-text-express-v1").Generate(context.Background(), &core.ModelRequest{Prompt: "p"})
	assert.ErrorIs(t, err, core.ErrModelRefused)
}

func TestBedrockClient_Generic(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"output field", `{"output":"a"}`, "a"},
		{"text field", `{"text":"b"}`, "b"},
		{"raw body", `not json at all`, "not json at all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newTestClient(&fakeInvoker{body: tt.body}, "meta.llama3-8b-instruct-v1:0").
				Generate(context.Background(), &core.ModelRequest{Prompt: "p"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Text)
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"ModelTimeoutException", core.ErrModelTimeout},
		{"ValidationException", core.ErrModelRefused},
		{"ThrottlingException", core.ErrModelUnavailable},
		{"AccessDeniedException", core.ErrModelUnavailable},
		{"ServiceUnavailableException", core.ErrModelUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := &smithy.GenericAPIError{Code: tt.code, Message: "test"}
			_, genErr := newTestClient(&fakeInvoker{err: err}, "anthropic.claude-3-haiku").
				Generate(context.Background(), &core.ModelRequest{Prompt: "p"})
			assert.ErrorIs(t, genErr, tt.want)
		})
	}

	assert.ErrorIs(t, classifyError(context.DeadlineExceeded), core.ErrModelTimeout)
	assert.ErrorIs(t, classifyError(errors.New("no route to host")), core.ErrModelUnavailable)
}

func TestFactory_MissingModelID(t *testing.T) {
	v := config.NewEmptyViper()
	v.Set("bedrock.model_id", "")
	logger := zap.NewNop()
	_, err := NewFactory(config.NewFromViper(v), logger, utils.NewTextProcessor(logger)).CreateClient()

	var cfgErr *core.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "bedrock.model_id", cfgErr.Input)
}
