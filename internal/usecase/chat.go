package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"genapp-chat/internal/domain"
)

const (
	defaultHistoryLimit = 6
	// relevanceThreshold is the minimum similarity score for a retrieved
	// passage to be used as context.
	relevanceThreshold = 0.3
	defaultModelID     = "amazon.titan-text-express-v1"
)

// Retriever fetches scored passages from the knowledge base.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.RetrievalResult, error)
}

// Generator submits a prompt to the language model and returns the answer.
type Generator interface {
	Generate(ctx context.Context, modelID, prompt string) (string, error)
}

// TurnStore is the conversation state surface consumed by the chat service.
type TurnStore interface {
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	SaveExchange(ctx context.Context, sessionID, query, answer string, sources []string) error
}

// OverrideSource supplies optional prompt settings from the parameter store.
type OverrideSource interface {
	LoadOverrides(ctx context.Context, prefix string) (modelID, framing string, err error)
}

// historyState distinguishes an empty session from an unreachable store.
// Both degrade to an absent history section; the distinction exists for
// diagnostics only.
type historyState int

const (
	historyOK historyState = iota
	historyEmpty
	historyUnavailable
)

type historyOutcome struct {
	state     historyState
	formatted string
}

// Deps wires a ChatService. Generator and Logger are required; Retriever,
// Store and Overrides are nil when the backing resource is unconfigured.
type Deps struct {
	Retriever    Retriever
	Generator    Generator
	Store        TurnStore
	Overrides    OverrideSource
	ParamPrefix  string
	Logger       *slog.Logger
	HistoryLimit int
}

// ChatService orchestrates one chat exchange: history fetch, retrieval,
// relevance filtering, prompt assembly, generation and persistence.
type ChatService struct {
	retriever    Retriever
	generator    Generator
	store        TurnStore
	overrides    OverrideSource
	paramPrefix  string
	logger       *slog.Logger
	historyLimit int

	cacheMu     sync.RWMutex
	cacheLoaded bool
	modelID     string
	framing     string
}

type ChatInput struct {
	Query     string
	SessionID string
}

type ChatOutput struct {
	Answer  string
	Sources []string
}

// NewChatService creates a ChatService from Deps.
func NewChatService(d Deps) (*ChatService, error) {
	if d.Generator == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if d.Logger == nil {
		return nil, errors.New("usecase: logger must not be nil")
	}
	if d.Overrides != nil && strings.TrimSpace(d.ParamPrefix) == "" {
		return nil, errors.New("usecase: override source requires a parameter prefix")
	}
	limit := d.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	s := &ChatService{
		retriever:    d.Retriever,
		generator:    d.Generator,
		store:        d.Store,
		overrides:    d.Overrides,
		paramPrefix:  strings.TrimSpace(d.ParamPrefix),
		logger:       d.Logger,
		historyLimit: limit,
		modelID:      defaultModelID,
		framing:      defaultFraming,
	}
	if s.overrides == nil {
		s.cacheLoaded = true
	}
	return s, nil
}

// ModelID returns the model currently used for generation.
func (s *ChatService) ModelID() string {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.modelID
}

// Chat runs one exchange. History and persistence failures degrade silently;
// retrieval and generation failures surface as a single ErrorBedrock category
// with the specific cause kept in the error reason.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if s.retriever == nil {
		return ChatOutput{}, newError(ErrorConfig, "kb_not_configured", nil)
	}
	s.ensureConfig(ctx)
	query := strings.TrimSpace(in.Query)

	history := s.fetchHistory(ctx, in.SessionID)

	results, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return ChatOutput{}, newError(ErrorBedrock, "retrieve_error", err)
	}
	relevant := filterByScore(results, relevanceThreshold)
	docContext := joinContexts(relevant)
	sources := collectSources(relevant)
	if docContext == "" {
		// Open-domain fallback carries no citations.
		sources = nil
	}

	prompt := buildPrompt(s.framingSentence(), history.formatted, docContext, query)

	answer, err := s.generator.Generate(ctx, s.ModelID(), prompt)
	if err != nil {
		return ChatOutput{}, newError(ErrorBedrock, "invoke_error", err)
	}

	if s.store != nil {
		if err := s.store.SaveExchange(ctx, in.SessionID, query, answer, sources); err != nil {
			// The answer is already computed; losing memory beats losing it.
			s.logger.Warn("failed to persist exchange", "session_id", in.SessionID, "err", err)
		}
	}

	return ChatOutput{Answer: answer, Sources: sources}, nil
}

// fetchHistory returns the formatted recent history, degrading to an absent
// section on any storage failure.
func (s *ChatService) fetchHistory(ctx context.Context, sessionID string) historyOutcome {
	if s.store == nil {
		return historyOutcome{state: historyEmpty}
	}
	turns, err := s.store.RecentTurns(ctx, sessionID, s.historyLimit)
	if err != nil {
		s.logger.Warn("conversation history unavailable", "session_id", sessionID, "err", err)
		return historyOutcome{state: historyUnavailable}
	}
	if len(turns) == 0 {
		return historyOutcome{state: historyEmpty}
	}
	return historyOutcome{state: historyOK, formatted: formatHistory(turns)}
}

func (s *ChatService) framingSentence() string {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.framing
}

// ensureConfig applies parameter-store overrides on the first exchange and
// reuses them for the life of the process. Override failures fall back to the
// defaults rather than failing the request.
func (s *ChatService) ensureConfig(ctx context.Context) {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return
	}

	modelID, framing, err := s.overrides.LoadOverrides(ctx, s.paramPrefix)
	if err != nil {
		s.logger.Warn("prompt overrides unavailable, using defaults", "err", err)
	}
	if modelID != "" {
		s.modelID = modelID
	}
	if framing != "" {
		s.framing = framing
	}
	s.cacheLoaded = true
}
