// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/som-agent/api/schemas"
	"github.com/xkilldash9x/som-agent/internal/config"
)

// ProviderGemini is the only decision-service provider currently wired in.
const ProviderGemini = "gemini"

// NewClient creates a DecisionClient for the configured provider.
func NewClient(cfg config.VisionConfig, logger *zap.Logger) (schemas.DecisionClient, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported vision provider %q (supported: %s)", cfg.Provider, ProviderGemini)
	}
}
