// Package app assembles the agents and their collaborators from configuration.
// Both the HTTP server and the CLI start from New.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/rommaana-agents/internal/agent"
	"github.com/ashureev/rommaana-agents/internal/agents"
	"github.com/ashureev/rommaana-agents/internal/bridge"
	"github.com/ashureev/rommaana-agents/internal/config"
	"github.com/ashureev/rommaana-agents/internal/conversation"
	"github.com/ashureev/rommaana-agents/internal/insurance"
	"github.com/ashureev/rommaana-agents/internal/knowledge"
	"github.com/ashureev/rommaana-agents/internal/llm"
	"github.com/ashureev/rommaana-agents/internal/store"
)

// App is the wired service graph.
type App struct {
	Provider  llm.Provider
	Extractor *llm.Extractor
	// Vision is nil when no multimodal provider is configured.
	Vision    llm.Vision
	Retriever *knowledge.ChromaRetriever
	Knowledge *knowledge.Service
	Bridge    bridge.Bridge
	// Notebooks is nil when the bridge is disabled.
	Notebooks *bridge.Subprocess
	Toolbox   *agents.Toolbox
	Agents    *agent.Directory
	Sweepers  []conversation.Sweeper

	closers []func() error
}

// New builds the App described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{}

	provider, gemini, err := newProvider(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	a.Provider = llm.WithTimeout(provider, cfg.LLM.Timeout)
	a.Extractor = llm.NewExtractor(a.Provider)

	var embedder llm.Embedder = llm.Unconfigured{}
	if gemini != nil {
		embedder = gemini
		a.Vision = gemini
	}
	a.Retriever = knowledge.NewChromaRetriever(cfg.Knowledge.ChromaURL, embedder, logger)
	a.Knowledge = knowledge.NewService(a.Retriever, a.Provider, a.Extractor, logger).
		WithCollection(cfg.Knowledge.Collection)

	a.Bridge = bridge.Noop{}
	if cfg.Bridge.Enabled {
		a.Notebooks = bridge.NewSubprocess(bridge.Config{
			Script:       cfg.Bridge.Script,
			Interpreters: cfg.Bridge.Interpreters,
			Timeout:      cfg.Bridge.Timeout,
		}, logger)
		a.Bridge = a.Notebooks
	}

	stores, err := a.newStores(cfg, logger)
	if err != nil {
		return nil, err
	}

	a.Toolbox = agents.NewToolbox(agents.Services{
		Knowledge: a.Knowledge,
		Extractor: a.Extractor,
		Provider:  a.Provider,
		Vision:    a.Vision,
		Ledger:    insurance.NewClaimLedger(),
		Logger:    logger,
	})
	a.Agents = agents.NewDirectory(a.Toolbox, func(t agent.Type) agent.Deps {
		return agent.Deps{
			Provider:  a.Provider,
			Extractor: a.Extractor,
			Bridge:    a.Bridge,
			Store:     stores[t],
			Logger:    logger,
		}
	})

	logger.Info("Agents initialized",
		"provider", cfg.LLM.Provider,
		"vision", a.Vision != nil,
		"bridge", cfg.Bridge.Enabled,
		"conversation_backend", cfg.Conversation.Backend,
		"agents", len(a.Agents.Types()),
	)
	return a, nil
}

// Close releases the stores.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// newProvider returns the generation provider and, when a Gemini key is
// present, the Gemini client used for embeddings and vision.
func newProvider(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (llm.Provider, *llm.Gemini, error) {
	var gemini *llm.Gemini
	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewRealGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		gemini = llm.NewGemini(client, cfg.GeminiModel, cfg.EmbeddingModel)
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			logger.Warn("ANTHROPIC_API_KEY is not set, generation is disabled")
			return llm.Unconfigured{}, gemini, nil
		}
		return llm.NewAnthropic(llm.NewAnthropicMessages(cfg.AnthropicAPIKey), cfg.AnthropicModel), gemini, nil
	default:
		if gemini == nil {
			logger.Warn("GEMINI_API_KEY is not set, generation is disabled")
			return llm.Unconfigured{}, nil, nil
		}
		return gemini, gemini, nil
	}
}

// newStores gives every agent its own conversation store.
func (a *App) newStores(cfg *config.Config, logger *slog.Logger) (map[agent.Type]conversation.Store, error) {
	types := []agent.Type{agent.TypeClaims, agent.TypePolicy, agent.TypeSupport, agent.TypeCompliance}
	stores := make(map[agent.Type]conversation.Store, len(types))
	conv := cfg.Conversation

	if conv.Backend == config.BackendSQLite {
		db, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open conversation database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		for _, t := range types {
			stores[t] = db.ForAgent(string(t), conv.HistoryLimit)
		}
		a.Sweepers = append(a.Sweepers, db.Sweeper(conv.IdleTTL))
		logger.Info("Conversation store ready", "backend", "sqlite", "path", cfg.DBPath)
		return stores, nil
	}

	for _, t := range types {
		mem := conversation.NewMemoryStore(conversation.Options{
			HistoryLimit:     conv.HistoryLimit,
			MaxConversations: conv.MaxConversations,
			IdleTTL:          conv.IdleTTL,
		})
		stores[t] = mem
		a.Sweepers = append(a.Sweepers, mem)
	}
	return stores, nil
}
