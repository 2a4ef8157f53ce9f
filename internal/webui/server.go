package webui

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

//go:embed assets
var assets embed.FS

// cognitoAPI is the minimal Cognito interface required by Server.
// *cognitoidentityprovider.Client satisfies it.
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// Server is the chat shell: an embedded single-page UI plus a thin login
// proxy in front of the identity provider. Chat, upload and sync calls go
// from the browser straight to the orchestrator with the bearer token
// obtained here.
type Server struct {
	api        cognitoAPI
	clientID   string
	backendURL string
	logger     *slog.Logger
}

// New creates a Server. api and clientID may be zero when the identity pool
// is unconfigured; login then reports that instead of proxying.
func New(api cognitoAPI, clientID, backendURL string, logger *slog.Logger) (*Server, error) {
	if backendURL == "" {
		return nil, errors.New("webui: backend url must not be empty")
	}
	if logger == nil {
		return nil, errors.New("webui: logger must not be nil")
	}
	return &Server{api: api, clientID: clientID, backendURL: backendURL, logger: logger}, nil
}

// Register mounts the shell routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.Use(middleware.Recover())
	e.GET("/", s.Index)
	e.GET("/config", s.Config)
	e.POST("/login", s.Login)
}

// Index serves the embedded chat page.
func (s *Server) Index(c echo.Context) error {
	page, err := assets.ReadFile("assets/index.html")
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, page)
}

// Config hands the browser its backend address, a fresh session id and
// whether a login is required.
func (s *Server) Config(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"backend_url":   s.backendURL,
		"session_id":    uuid.NewString(),
		"auth_required": s.api != nil && s.clientID != "",
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges username/password credentials for an identity token via
// the USER_PASSWORD_AUTH flow.
func (s *Server) Login(c echo.Context) error {
	if s.api == nil || s.clientID == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "COGNITO_CLIENT_ID not configured")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	out, err := s.api.InitiateAuth(c.Request().Context(), &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.clientID),
		AuthParameters: map[string]string{
			"USERNAME": req.Username,
			"PASSWORD": req.Password,
		},
	})
	if err != nil {
		s.logger.Warn("login failed", "username", req.Username, "err", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "Login failed")
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.IdToken == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Login failed: no authentication result")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"token":    *out.AuthenticationResult.IdToken,
		"username": req.Username,
	})
}
