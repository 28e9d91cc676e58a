package genai

import (
	"context"
	"errors"
	"time"

	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const providerName = "genai"

// contentGenerator is satisfied by genai.Client.Models
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIClient is an implementation of the LLMClient interface using the
// unified Google GenAI SDK, which serves both the Gemini API and Vertex AI.
type GenAIClient struct {
	models           contentGenerator
	modelName        string
	maxTokens        int32
	temperature      float32
	topP             float32
	timeout          time.Duration
	maxPromptSize    int
	structuredOutput bool
	logger           *zap.Logger
	textProcessor    *utils.TextProcessor
}

// NewGenAIClient creates a new GenAI client
func NewGenAIClient(
	models contentGenerator,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	timeout time.Duration,
	maxPromptSize int,
	structuredOutput bool,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *GenAIClient {
	return &GenAIClient{
		models:           models,
		modelName:        modelName,
		maxTokens:        int32(maxTokens),
		temperature:      temperature,
		topP:             topP,
		timeout:          timeout,
		maxPromptSize:    maxPromptSize,
		structuredOutput: structuredOutput,
		logger:           logger,
		textProcessor:    textProcessor,
	}
}

// Generate sends the prompt and returns the text of the first candidate
func (c *GenAIClient) Generate(ctx context.Context, req *core.ModelRequest) (*core.ModelResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := c.textProcessor.ProcessText(req.Prompt, c.maxPromptSize)

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		TopP:            genai.Ptr(c.topP),
		MaxOutputTokens: c.maxTokens,
	}
	if c.structuredOutput && req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toSchema(req.Schema)
	}

	resp, err := c.models.GenerateContent(ctx, c.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return nil, classifyError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" &&
		resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return nil, core.NewModelError(core.ErrModelRefused, providerName,
			errors.New("prompt blocked: "+string(resp.PromptFeedback.BlockReason)))
	}
	if len(resp.Candidates) == 0 {
		return nil, core.NewModelError(core.ErrModelRefused, providerName, errors.New("no candidates in response"))
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent:
		return nil, core.NewModelError(core.ErrModelRefused, providerName,
			errors.New("response blocked: "+string(resp.Candidates[0].FinishReason)))
	}

	text := resp.Text()
	if text == "" {
		return nil, core.NewModelError(core.ErrModelRefused, providerName, errors.New("response contained no text"))
	}

	c.logger.Debug("GenAI response received",
		zap.String("model", resp.ModelVersion),
		zap.String("response_id", resp.ResponseID))

	model := resp.ModelVersion
	if model == "" {
		model = c.modelName
	}
	return &core.ModelResponse{
		Text:  text,
		Model: model,
		ID:    resp.ResponseID,
	}, nil
}

// classifyError maps SDK errors onto the model failure kinds
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewModelError(core.ErrModelTimeout, providerName, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return core.NewModelError(core.KindForStatus(apiErr.Code), providerName, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return core.NewModelError(core.KindForStatus(apiErrPtr.Code), providerName, err)
	}
	return core.ClassifyModelError(providerName, err, core.ErrModelUnavailable)
}

// toSchema converts the response contract into a GenAI schema
func toSchema(schema *core.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       make(map[string]*genai.Schema, len(schema.Fields)),
		Required:         schema.Required,
		PropertyOrdering: make([]string, 0, len(schema.Fields)),
	}
	for _, f := range schema.Fields {
		prop := &genai.Schema{
			Type:        genai.TypeString,
			Description: f.Description,
			Enum:        f.Enum,
		}
		if f.Type == core.SchemaInteger {
			prop.Type = genai.TypeInteger
		}
		if f.Nullable {
			prop.Nullable = genai.Ptr(true)
		}
		out.Properties[f.Name] = prop
		out.PropertyOrdering = append(out.PropertyOrdering, f.Name)
	}
	return out
}
