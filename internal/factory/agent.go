package factory

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/agent"
	agentollama "github.com/scamwatch/scamwatch-backend/internal/agent/ollama"
	"github.com/scamwatch/scamwatch-backend/internal/config"
)

// NewAgentFactory returns the questioning-agent factory for the configured
// chat provider. The factory is handed to orchestrators, which build the
// agent lazily on the first turn.
func NewAgentFactory(cfg *config.Config, log zerolog.Logger) (agent.Factory, error) {
	switch cfg.ChatProvider {
	case "", "ollama":
		timeout := time.Duration(cfg.AgentTimeoutSeconds) * time.Second
		return agentollama.NewFactory("", cfg.ChatModel, timeout, cfg.RetrievalTopK, log), nil
	default:
		return nil, fmt.Errorf("unknown CHAT_PROVIDER: %s", cfg.ChatProvider)
	}
}
