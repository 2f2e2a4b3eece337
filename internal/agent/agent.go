package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashureev/rommaana-agents/internal/bridge"
	"github.com/ashureev/rommaana-agents/internal/conversation"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/llm"
	"github.com/ashureev/rommaana-agents/internal/metrics"
	"github.com/ashureev/rommaana-agents/internal/tool"
)

// chatTemperature is used for every generated reply.
const chatTemperature float32 = 0.7

const (
	toolsHeader        = "\n\nYou have access to the following tools:\n"
	toolsFooter        = "\nTo use a tool, clearly indicate which tool you want to use and provide the required parameters."
	arabicDirective    = "\n\nIMPORTANT: Always respond in Arabic."
	bilingualDirective = "\n\nIMPORTANT: Provide your responses in both English and Arabic."
	contractDirective  = "\n\nIMPORTANT: Respond in valid JSON format only with two fields: 'message' (your response to the user) and 'reasoning' (a brief explanation of the logic, rules, or data sources you used to arrive at this answer)."
	insightsTemplate   = "\n\n### SOVEREIGN KNOWLEDGE BASE INSIGHTS\n%s\n\nUse the above insights to answer the user's query accurately, citing sources if mentioned."
)

// Deps are the collaborators an Agent needs.
type Deps struct {
	Provider  llm.Provider
	Extractor tool.Extractor
	// Bridge defaults to bridge.Noop.
	Bridge bridge.Bridge
	// Store defaults to an unbounded-conversation MemoryStore.
	Store  conversation.Store
	Logger *slog.Logger
	Now    func() time.Time
}

// Agent runs the turn protocol for one specialized agent. Its store and
// tools are never shared with another agent.
type Agent struct {
	cfg       Config
	tools     *tool.Registry
	store     conversation.Store
	provider  llm.Provider
	extractor tool.Extractor
	bridge    bridge.Bridge
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Agent.
func New(cfg Config, deps Deps) *Agent {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("agent", string(cfg.Type))
	if deps.Bridge == nil {
		deps.Bridge = bridge.Noop{}
	}
	if deps.Store == nil {
		deps.Store = conversation.NewMemoryStore(conversation.Options{})
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Extractor == nil && deps.Provider != nil {
		deps.Extractor = llm.NewExtractor(deps.Provider)
	}
	return &Agent{
		cfg:       cfg,
		tools:     tool.NewRegistry(logger),
		store:     deps.Store,
		provider:  deps.Provider,
		extractor: deps.Extractor,
		bridge:    deps.Bridge,
		logger:    logger,
		now:       deps.Now,
	}
}

// Register adds tools to the agent.
func (a *Agent) Register(tools ...tool.Tool) {
	for _, t := range tools {
		a.tools.Register(t)
	}
}

// Type returns the agent type.
func (a *Agent) Type() Type { return a.cfg.Type }

// Info returns discovery metadata.
func (a *Agent) Info() Info {
	return Info{
		Type:           a.cfg.Type,
		Name:           a.cfg.Name,
		Description:    a.cfg.Description,
		AvailableTools: a.tools.Names(),
	}
}

// Clear forgets a conversation.
func (a *Agent) Clear(ctx context.Context, conversationID string) error {
	if err := a.store.Clear(ctx, conversationID); err != nil {
		return fmt.Errorf("clear conversation %s: %w", conversationID, err)
	}
	return nil
}

// Chat processes one user turn.
//
// A message naming a tool runs that tool and returns its outcome without
// calling the generator; only the user turn is recorded in that case.
// Otherwise the reply is generated from the full history and recorded.
func (a *Agent) Chat(ctx context.Context, message string, ac domain.AgentContext) (*Response, error) {
	start := a.now()
	resp, outcome, err := a.chat(ctx, message, ac)
	metrics.ChatDuration.WithLabelValues(string(a.cfg.Type)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ChatTotal.WithLabelValues(string(a.cfg.Type), "error").Inc()
		a.logger.Error("Chat turn failed", "conversation_id", ac.ConversationID, "error", err)
		return nil, &ProcessError{Agent: a.cfg.Type, Err: err}
	}
	metrics.ChatTotal.WithLabelValues(string(a.cfg.Type), outcome).Inc()
	return resp, nil
}

func (a *Agent) chat(ctx context.Context, message string, ac domain.AgentContext) (*Response, string, error) {
	if a.provider == nil {
		return nil, "", llm.ErrNotConfigured
	}
	if err := a.store.Append(ctx, ac.ConversationID, domain.UserMessage(message, a.now())); err != nil {
		return nil, "", fmt.Errorf("record user message: %w", err)
	}

	if t, ok := a.tools.Detect(message); ok {
		params := a.tools.ExtractParams(ctx, a.extractor, t, message)
		out := a.tools.Execute(ctx, t.Name, params, ac)
		return &Response{Message: out.Message, RequiresAction: out.Action}, "tool", nil
	}

	insights := a.insights(ctx, message)
	system := a.systemPrompt(ac.Language) + insights + contractDirective

	history, err := a.store.History(ctx, ac.ConversationID)
	if err != nil {
		return nil, "", fmt.Errorf("load history: %w", err)
	}

	gen, err := a.provider.Chat(ctx, history, llm.Options{
		SystemPrompt: system,
		Language:     ac.Language,
		Temperature:  llm.Temperature(chatTemperature),
	})
	if err != nil {
		return nil, "", err
	}
	if gen == nil {
		return nil, "", errors.New("provider returned no response")
	}

	reply := llm.ParseReply(gen.Content)
	if reply.Message == gen.Content && reply.Reasoning == "" {
		a.logger.Debug("Reply was not a JSON envelope, using raw text", "conversation_id", ac.ConversationID)
	}

	if err := a.store.Append(ctx, ac.ConversationID, domain.AssistantMessage(reply.Message, a.now())); err != nil {
		return nil, "", fmt.Errorf("record assistant message: %w", err)
	}

	var suggested []string
	if a.cfg.Suggest != nil {
		latest, err := a.store.History(ctx, ac.ConversationID)
		if err != nil {
			return nil, "", fmt.Errorf("load history: %w", err)
		}
		suggested = a.cfg.Suggest(latest, ac)
	}

	total := gen.TokensUsed + estimateTokens(message, insights)
	metrics.LLMTokensTotal.WithLabelValues(string(a.cfg.Type)).Add(float64(gen.TokensUsed))

	outcome := "generated"
	if insights != "" {
		outcome = "knowledge"
	}
	return &Response{
		Message:       reply.Message,
		Reasoning:     reply.Reasoning,
		SuggestedNext: suggested,
		Metadata:      &Metadata{Usage: &Usage{TotalTokens: total}},
	}, outcome, nil
}

// insights returns the knowledge block for the system prompt, or "".
func (a *Agent) insights(ctx context.Context, message string) string {
	if a.cfg.NotebookID == "" {
		return ""
	}
	text, ok := a.bridge.Query(ctx, a.cfg.NotebookID, message)
	if !ok || text == "" {
		a.logger.Info("No notebook insights, using model knowledge", "notebook_id", a.cfg.NotebookID)
		return ""
	}
	return fmt.Sprintf(insightsTemplate, text)
}

func (a *Agent) systemPrompt(lang domain.Language) string {
	var b strings.Builder
	b.WriteString(a.cfg.SystemPrompt)

	if a.tools.Len() > 0 {
		b.WriteString(toolsHeader)
		for _, t := range a.tools.Tools() {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		}
		b.WriteString(toolsFooter)
	}

	switch lang {
	case domain.LanguageArabic:
		b.WriteString(arabicDirective)
	case domain.LanguageBoth:
		b.WriteString(bilingualDirective)
	}
	return b.String()
}

// estimateTokens approximates the prompt text the provider does not report:
// one token per four characters, rounded up.
func estimateTokens(message, insights string) int {
	chars := utf8.RuneCountInString(message) + utf8.RuneCountInString(insights)
	return (chars + 3) / 4
}
