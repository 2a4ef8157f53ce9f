package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"genapp-chat/internal/auth"
	"genapp-chat/internal/domain"
	"genapp-chat/internal/integrations/bedrock"
	"genapp-chat/internal/usecase"
)

// ChatUseCase is the orchestration surface consumed by the HTTP layer.
type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
	ModelID() string
}

// HistoryStore lists a session's stored turns.
type HistoryStore interface {
	AllTurns(ctx context.Context, sessionID string) ([]domain.Turn, error)
}

// UploadURLIssuer issues presigned upload URLs for the document bucket.
type UploadURLIssuer interface {
	UploadURL(ctx context.Context, key string) (string, error)
}

// SyncStarter starts a knowledge-base ingestion job.
type SyncStarter interface {
	StartSync(ctx context.Context) (bedrock.IngestionJob, error)
}

// Deps wires a Handler. Chat, Authn and Logger are required; History,
// Uploads and Sync are nil when the backing resource is unconfigured and the
// matching endpoint degrades per the API contract.
type Deps struct {
	Chat    ChatUseCase
	History HistoryStore
	Uploads UploadURLIssuer
	Sync    SyncStarter
	Authn   auth.Authenticator
	Logger  *slog.Logger
}

// Handler serves the orchestrator HTTP API.
type Handler struct {
	chat    ChatUseCase
	history HistoryStore
	uploads UploadURLIssuer
	sync    SyncStarter
	authn   auth.Authenticator
	logger  *slog.Logger
}

// New creates a Handler from Deps.
func New(d Deps) (*Handler, error) {
	if d.Chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if d.Authn == nil {
		return nil, errors.New("handler: authenticator must not be nil")
	}
	if d.Logger == nil {
		return nil, errors.New("handler: logger must not be nil")
	}
	return &Handler{
		chat:    d.Chat,
		history: d.History,
		uploads: d.Uploads,
		sync:    d.Sync,
		authn:   d.Authn,
		logger:  d.Logger,
	}, nil
}

// ChatRequest is the /api/chat request body.
type ChatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// ChatResponse is the /api/chat response body.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Register mounts the API on e. The health probe is open; everything under
// /api goes through bearer authentication.
func (h *Handler) Register(e *echo.Echo) {
	e.HTTPErrorHandler = h.errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	e.GET("/", h.Health)

	api := e.Group("/api", auth.Middleware(h.authn))
	api.POST("/chat", h.Chat)
	api.GET("/history/:session_id", h.History)
	api.GET("/upload-url", h.UploadURL)
	api.POST("/sync", h.Sync)
}

// errorHandler renders every error as {"detail": <message>} and logs it.
func (h *Handler) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	h.logger.Warn("request failed",
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"status", code,
		"err", err,
	)
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"detail": msg})
	}
}

// Health reports liveness and the active generation model. No auth.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"model":  h.chat.ModelID(),
	})
}

// Chat runs one retrieval-augmented exchange.
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	out, err := h.chat.Chat(c.Request().Context(), usecase.ChatInput{
		Query:     req.Query,
		SessionID: req.SessionID,
	})
	if err != nil {
		var ucErr *usecase.Error
		if errors.As(err, &ucErr) && ucErr.Code == usecase.ErrorConfig {
			return echo.NewHTTPError(http.StatusInternalServerError, "KB_ID not configured")
		}
		detail := err.Error()
		if errors.As(err, &ucErr) && ucErr.Err != nil {
			detail = ucErr.Err.Error()
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Bedrock error: "+detail)
	}

	sources := out.Sources
	if sources == nil {
		sources = []string{}
	}
	return c.JSON(http.StatusOK, ChatResponse{Answer: out.Answer, Sources: sources})
}

// History returns the raw ordered turn list for a session; an empty list
// when no conversation store is configured.
func (h *Handler) History(c echo.Context) error {
	if h.history == nil {
		return c.JSON(http.StatusOK, []domain.Turn{})
	}
	turns, err := h.history.AllTurns(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	return c.JSON(http.StatusOK, turns)
}

// UploadURL issues a presigned PUT URL for one object key in the document
// bucket.
func (h *Handler) UploadURL(c echo.Context) error {
	if h.uploads == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "KB_BUCKET_NAME not configured")
	}
	filename := c.QueryParam("filename")
	if filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "filename is required")
	}
	url, err := h.uploads.UploadURL(c.Request().Context(), filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"upload_url": url,
		"filename":   filename,
	})
}

// Sync starts an ingestion job on the knowledge base's first data source.
// Missing configuration and missing data sources are reported in-band, not
// as HTTP errors.
func (h *Handler) Sync(c echo.Context) error {
	if h.sync == nil {
		return c.JSON(http.StatusOK, map[string]string{"error": "KB_ID not configured"})
	}
	job, err := h.sync.StartSync(c.Request().Context())
	if err != nil {
		if errors.Is(err, bedrock.ErrNoDataSource) {
			return c.JSON(http.StatusOK, map[string]string{"error": "No data source found"})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"job_id": job.ID,
		"status": job.Status,
	})
}
