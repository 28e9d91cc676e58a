package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const providerName = "gemini"

// contentGenerator is the part of genai.GenerativeModel the client uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         contentGenerator
	modelName     string
	timeout       time.Duration
	maxPromptSize int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client. client may be nil when the
// model is not backed by a live connection.
func NewGeminiClient(
	client *genai.Client,
	model contentGenerator,
	modelName string,
	timeout time.Duration,
	maxPromptSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *GeminiClient {
	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		timeout:       timeout,
		maxPromptSize: maxPromptSize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Generate sends the prompt to Gemini and returns the concatenated text parts.
// The response schema is configured on the model when it is built.
func (c *GeminiClient) Generate(ctx context.Context, req *core.ModelRequest) (*core.ModelResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := c.textProcessor.ProcessText(req.Prompt, c.maxPromptSize)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, classifyError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return nil, core.NewModelError(core.ErrModelRefused, providerName,
			errors.New("prompt blocked: "+resp.PromptFeedback.BlockReason.String()))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, core.NewModelError(core.ErrModelRefused, providerName, errors.New("empty response from Gemini"))
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety || candidate.FinishReason == genai.FinishReasonRecitation {
		return nil, core.NewModelError(core.ErrModelRefused, providerName,
			errors.New("response blocked: "+candidate.FinishReason.String()))
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return nil, core.NewModelError(core.ErrModelRefused, providerName, errors.New("response contained no text"))
	}

	return &core.ModelResponse{
		Text:  text.String(),
		Model: c.modelName,
	}, nil
}

// classifyError maps SDK errors onto the model failure kinds
func classifyError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return core.NewModelError(core.ErrModelRefused, providerName, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewModelError(core.ErrModelTimeout, providerName, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return core.NewModelError(core.KindForStatus(apiErr.Code), providerName, err)
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded:
			return core.NewModelError(core.ErrModelTimeout, providerName, err)
		case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
			return core.NewModelError(core.ErrModelRefused, providerName, err)
		case codes.Unknown:
			// not a gRPC status, fall through to transport classification
		default:
			return core.NewModelError(core.ErrModelUnavailable, providerName, err)
		}
	}
	return core.ClassifyModelError(providerName, err, core.ErrModelUnavailable)
}

// toSchema converts the response contract into a Gemini schema
func toSchema(schema *core.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(schema.Fields)),
		Required:   schema.Required,
	}
	for _, f := range schema.Fields {
		prop := &genai.Schema{
			Type:        genai.TypeString,
			Description: f.Description,
			Enum:        f.Enum,
			Nullable:    f.Nullable,
		}
		if f.Type == core.SchemaInteger {
			prop.Type = genai.TypeInteger
		}
		if len(f.Enum) > 0 {
			prop.Format = "enum"
		}
		out.Properties[f.Name] = prop
	}
	return out
}
