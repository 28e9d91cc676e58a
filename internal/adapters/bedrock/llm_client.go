package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/utils"
	"go.uber.org/zap"
)

const (
	providerName     = "bedrock"
	anthropicVersion = "bedrock-2023-05-31"
)

// modelInvoker is the part of bedrockruntime.Client the client uses
type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of the LLMClient interface using Amazon Bedrock
type BedrockClient struct {
	client        modelInvoker
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	timeout       time.Duration
	maxPromptSize int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client modelInvoker,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	timeout time.Duration,
	maxPromptSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		timeout:       timeout,
		maxPromptSize: maxPromptSize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Generate invokes the configured model. Bedrock has no response schema
// support, so the prompt alone carries the JSON contract.
func (c *BedrockClient) Generate(ctx context.Context, req *core.ModelRequest) (*core.ModelResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := c.textProcessor.ProcessText(req.Prompt, c.maxPromptSize)

	payload, err := c.buildPayload(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, classifyError(err)
	}

	text, err := c.parseResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Bedrock response received", zap.String("model_id", c.modelID), zap.Int("length", len(text)))

	return &core.ModelResponse{
		Text:  text,
		Model: c.modelID,
	}, nil
}

// buildPayload creates the request body for the model family
func (c *BedrockClient) buildPayload(prompt string) ([]byte, error) {
	switch {
	case c.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"anthropic_version": anthropicVersion,
			"max_tokens":        c.maxTokens,
			"temperature":       c.temperature,
			"top_p":             c.topP,
			"messages": []map[string]interface{}{{
				"role":    "user",
				"content": []map[string]string{{"type": "text", "text": prompt}},
			}},
		})
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
}

// parseResponse extracts the generated text for the model family
func (c *BedrockClient) parseResponse(body []byte) (string, error) {
	switch {
	case c.isAnthropicModel():
		var claudeResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			StopReason string `json:"stop_reason"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", core.NewModelError(core.ErrModelUnavailable, providerName, fmt.Errorf("failed to unmarshal Claude response: %w", err))
		}
		var text strings.Builder
		for _, block := range claudeResp.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		if text.Len() == 0 {
			return "", core.NewModelError(core.ErrModelRefused, providerName,
				fmt.Errorf("empty response from Claude model (stop reason %q)", claudeResp.StopReason))
		}
		return text.String(), nil

	case c.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText       string `json:"outputText"`
				CompletionReason string `json:"completionReason"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", core.NewModelError(core.ErrModelUnavailable, providerName, fmt.Errorf("failed to unmarshal Titan response: %w", err))
		}
		if len(titanResp.Results) == 0 {
			return "", core.NewModelError(core.ErrModelRefused, providerName, errors.New("empty response from Titan model"))
		}
		if titanResp.Results[0].CompletionReason == "CONTENT_FILTERED" {
			return "", core.NewModelError(core.ErrModelRefused, providerName, errors.New("response filtered by Titan content policy"))
		}
		return titanResp.Results[0].OutputText, nil

	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			// Not JSON; hand the raw body to the normalizer
			return string(body), nil
		}
		switch {
		case genericResp.Output != "":
			return genericResp.Output, nil
		case genericResp.Text != "":
			return genericResp.Text, nil
		case genericResp.Response != "":
			return genericResp.Response, nil
		default:
			return string(body), nil
		}
	}
}

// isAnthropicModel checks if the model is an Anthropic Claude model,
// including cross-region inference profiles such as us.anthropic.claude-*
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.Contains(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}

// classifyError maps Bedrock service errors onto the model failure kinds
func classifyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ModelTimeoutException":
			return core.NewModelError(core.ErrModelTimeout, providerName, err)
		case "ValidationException", "ModelErrorException":
			return core.NewModelError(core.ErrModelRefused, providerName, err)
		default:
			// AccessDenied, ResourceNotFound, Throttling, ServiceUnavailable, ModelNotReady
			return core.NewModelError(core.ErrModelUnavailable, providerName, err)
		}
	}
	return core.ClassifyModelError(providerName, err, core.ErrModelUnavailable)
}
