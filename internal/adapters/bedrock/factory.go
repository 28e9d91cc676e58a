package bedrock

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/utils"
	"go.uber.org/zap"
)

// Factory creates Bedrock clients
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClient creates a new Bedrock client. Credentials come from the
// default AWS chain.
func (f *Factory) CreateClient() (*BedrockClient, error) {
	llmCfg, err := f.cfg.GetLLM()
	if err != nil {
		return nil, &core.ConfigError{Input: "llm.timeout", Err: err}
	}
	bedrockCfg := f.cfg.GetBedrock()
	if bedrockCfg.ModelID == "" {
		return nil, &core.ConfigError{Input: "bedrock.model_id", Err: errors.New("bedrock model id is required")}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(bedrockCfg.Region))
	if err != nil {
		return nil, &core.ConfigError{Input: "bedrock.region", Err: fmt.Errorf("failed to load AWS configuration: %w", err)}
	}

	return NewBedrockClient(
		bedrockruntime.NewFromConfig(awsCfg),
		bedrockCfg.ModelID,
		bedrockCfg.MaxTokens,
		bedrockCfg.Temperature,
		bedrockCfg.TopP,
		llmCfg.Timeout,
		llmCfg.MaxPromptSize,
		f.logger,
		f.textProcessor,
	), nil
}
