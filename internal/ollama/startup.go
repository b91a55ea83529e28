package ollama

import (
	"context"
	"log/slog"
)

// Readiness is the result of a one-shot startup probe.
type Readiness struct {
	Running  bool
	HasModel bool
}

// Probe checks that Ollama is reachable and that model is present locally,
// logging what it finds. The result is informational: the relay serves
// requests either way and reports upstream failures per request.
func Probe(ctx context.Context, c *Client, model string, logger *slog.Logger) Readiness {
	if logger == nil {
		logger = slog.Default()
	}

	if !c.IsRunning(ctx) {
		logger.Warn("ollama not reachable; /chat and /health will fail until it is started",
			"base_url", c.BaseURL(), "hint", "ollama serve")
		return Readiness{}
	}

	r := Readiness{Running: true, HasModel: c.HasModel(ctx, model)}
	if r.HasModel {
		logger.Info("ollama ready", "base_url", c.BaseURL(), "default_model", model)
	} else {
		logger.Warn("default model not present locally", "model", model, "hint", "ollama pull "+model)
	}
	return r
}
