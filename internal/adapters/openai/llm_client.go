package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"
)

const providerName = "openai"

const systemMessage = "You are a product listing authenticity analyst. Respond only with JSON."

// chatCompleter is the part of the OpenAI SDK the client uses
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client           chatCompleter
	modelName        string
	maxTokens        int
	temperature      float32
	topP             float32
	timeout          time.Duration
	maxPromptSize    int
	structuredOutput bool
	logger           *zap.Logger
	textProcessor    *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client chatCompleter,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	timeout time.Duration,
	maxPromptSize int,
	structuredOutput bool,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:           client,
		modelName:        modelName,
		maxTokens:        maxTokens,
		temperature:      temperature,
		topP:             topP,
		timeout:          timeout,
		maxPromptSize:    maxPromptSize,
		structuredOutput: structuredOutput,
		logger:           logger,
		textProcessor:    textProcessor,
	}
}

// Generate sends the prompt as a chat completion and returns the message text
func (c *OpenAIClient) Generate(ctx context.Context, req *core.ModelRequest) (*core.ModelResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := c.textProcessor.ProcessText(req.Prompt, c.maxPromptSize)

	chatReq := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemMessage,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	if c.structuredOutput {
		chatReq.ResponseFormat = responseFormat(req.Schema)
	}

	c.logger.Debug("Calling OpenAI",
		zap.String("model", c.modelName),
		zap.Int("prompt_size", len(prompt)))

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, core.NewModelError(core.ErrModelRefused, providerName, errors.New("empty response from OpenAI"))
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, core.NewModelError(core.ErrModelRefused, providerName, errors.New("response blocked by content filter"))
	}
	if choice.Message.Refusal != "" {
		return nil, core.NewModelError(core.ErrModelRefused, providerName, fmt.Errorf("model refused: %s", choice.Message.Refusal))
	}

	model := resp.Model
	if model == "" {
		model = c.modelName
	}
	return &core.ModelResponse{
		Text:  choice.Message.Content,
		Model: model,
		ID:    resp.ID,
	}, nil
}

// responseFormat asks for a JSON schema when one is given, otherwise for any JSON object
func responseFormat(schema *core.Schema) *openai.ChatCompletionResponseFormat {
	if schema == nil {
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	def := jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: make(map[string]jsonschema.Definition, len(schema.Fields)),
		Required:   schema.Required,
	}
	for _, f := range schema.Fields {
		prop := jsonschema.Definition{
			Type:        jsonschema.String,
			Description: f.Description,
			Enum:        f.Enum,
		}
		if f.Type == core.SchemaInteger {
			prop.Type = jsonschema.Integer
		}
		def.Properties[f.Name] = prop
	}

	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   schema.Name,
			Schema: &def,
		},
	}
}

// classifyError maps SDK errors onto the model failure kinds
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewModelError(core.ErrModelTimeout, providerName, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return core.NewModelError(core.KindForStatus(apiErr.HTTPStatusCode), providerName, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return core.NewModelError(core.KindForStatus(reqErr.HTTPStatusCode), providerName, err)
	}
	return core.ClassifyModelError(providerName, err, core.ErrModelUnavailable)
}
