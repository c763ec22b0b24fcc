package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/adapters/bedrock"
	"github.com/mikey/mail-sentinel/internal/adapters/gemini"
	"github.com/mikey/mail-sentinel/internal/adapters/openai"
	"github.com/mikey/mail-sentinel/internal/config"
	"github.com/mikey/mail-sentinel/internal/core"
	"github.com/mikey/mail-sentinel/internal/utils"
)

// LLMFactory creates model tier clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ClassifierLoader returns the lazy loader used by the classification
// engine, or nil when the model tier is disabled by configuration
func (f *LLMFactory) ClassifierLoader() core.ClassifierLoader {
	if f.cfg.GetLLM().Provider == "disabled" {
		return nil
	}
	return f.CreateLLMClient
}

// CreateLLMClient creates a new model tier client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	provider := f.cfg.GetLLM().Provider

	switch provider {
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}
}
