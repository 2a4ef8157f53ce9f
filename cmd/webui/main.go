package main

import (
	"context"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/labstack/echo/v4"

	"genapp-chat/internal/config"
	"genapp-chat/internal/webui"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	var (
		api      *cognitoidentityprovider.Client
		clientID string
	)
	if cfg.CognitoClientID != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			slog.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}
		api = cognitoidentityprovider.NewFromConfig(awsCfg)
		clientID = cfg.CognitoClientID
	} else {
		slog.Warn("COGNITO_CLIENT_ID not set, login is disabled")
	}

	shell, err := newShell(api, clientID, cfg.BackendURL)
	if err != nil {
		slog.Error("failed to create chat shell", "err", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	shell.Register(e)

	slog.Info("chat shell listening", "addr", cfg.ShellListenAddr, "backend", cfg.BackendURL)
	if err := e.Start(cfg.ShellListenAddr); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// newShell keeps the nil Cognito client untyped so an unconfigured pool
// reads as "no identity provider" inside the shell.
func newShell(api *cognitoidentityprovider.Client, clientID, backendURL string) (*webui.Server, error) {
	if api == nil {
		return webui.New(nil, clientID, backendURL, slog.Default())
	}
	return webui.New(api, clientID, backendURL, slog.Default())
}
