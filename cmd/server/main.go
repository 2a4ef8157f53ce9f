package main

import (
	"context"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/labstack/echo/v4"

	"genapp-chat/handler"
	"genapp-chat/internal/auth"
	"genapp-chat/internal/config"
	"genapp-chat/internal/integrations/bedrock"
	"genapp-chat/internal/integrations/paramstore"
	"genapp-chat/internal/integrations/storage"
	"genapp-chat/internal/repository"
	"genapp-chat/internal/usecase"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	generator, err := bedrock.NewGenerator(bedrockruntime.NewFromConfig(awsCfg))
	if err != nil {
		slog.Error("failed to create generator", "err", err)
		os.Exit(1)
	}

	deps := usecase.Deps{
		Generator: generator,
		Logger:    slog.Default(),
	}
	handlerDeps := handler.Deps{Logger: slog.Default()}

	if cfg.KnowledgeBaseID != "" {
		retriever, err := bedrock.NewRetriever(bedrockagentruntime.NewFromConfig(awsCfg), cfg.KnowledgeBaseID)
		if err != nil {
			slog.Error("failed to create retriever", "err", err)
			os.Exit(1)
		}
		admin, err := bedrock.NewAdmin(bedrockagent.NewFromConfig(awsCfg), cfg.KnowledgeBaseID)
		if err != nil {
			slog.Error("failed to create knowledge base admin", "err", err)
			os.Exit(1)
		}
		deps.Retriever = retriever
		handlerDeps.Sync = admin
	} else {
		slog.Warn("KB_ID not set, chat and sync are disabled")
	}

	if cfg.TableName != "" {
		store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.TableName)
		if err != nil {
			slog.Error("failed to create conversation store", "err", err)
			os.Exit(1)
		}
		deps.Store = store
		handlerDeps.History = store
	} else {
		slog.Warn("DYNAMODB_TABLE not set, conversation memory is disabled")
	}

	if cfg.BucketName != "" {
		presigner, err := storage.NewPresigner(s3.NewPresignClient(s3.NewFromConfig(awsCfg)), cfg.BucketName)
		if err != nil {
			slog.Error("failed to create presigner", "err", err)
			os.Exit(1)
		}
		handlerDeps.Uploads = presigner
	} else {
		slog.Warn("KB_BUCKET_NAME not set, document upload is disabled")
	}

	if cfg.ParamPrefix != "" {
		params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			slog.Error("failed to create parameter store client", "err", err)
			os.Exit(1)
		}
		deps.Overrides = params
		deps.ParamPrefix = cfg.ParamPrefix
	}

	chatService, err := usecase.NewChatService(deps)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	handlerDeps.Chat = chatService

	// Authentication strategy is fixed at startup: enforced token validation
	// when an identity pool is configured, anonymous passthrough otherwise.
	if cfg.AuthConfigured() {
		keys := auth.NewKeySet(cfg.JWKSURL())
		enforced, err := auth.NewEnforcedTokenAuth(keys, cfg.CognitoClientID, cfg.IssuerURL())
		if err != nil {
			slog.Error("failed to create token authenticator", "err", err)
			os.Exit(1)
		}
		handlerDeps.Authn = enforced
		slog.Info("bearer token enforcement enabled", "issuer", cfg.IssuerURL())
	} else {
		handlerDeps.Authn = auth.AnonymousPassthrough{}
		slog.Warn("identity pool not configured, running with anonymous access")
	}

	h, err := handler.New(handlerDeps)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	h.Register(e)

	slog.Info("chat orchestrator listening", "addr", cfg.ListenAddr, "model", chatService.ModelID())
	if err := e.Start(cfg.ListenAddr); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
