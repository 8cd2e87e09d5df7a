package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"studentcare-chat/handler"
	"studentcare-chat/internal/config"
	"studentcare-chat/internal/integrations/openai"
	"studentcare-chat/internal/integrations/paramstore"
	"studentcare-chat/internal/repository"
	"studentcare-chat/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Provider.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Provider ----
	provider := resolveProvider(ctx, cfg, awsCfg)
	if !provider.Valid() {
		// The service keeps running and answers CONFIGURATION_MISSING.
		slog.Warn("OpenAI API key is not configured properly", "status", provider.Status())
	}

	openaiClient, err := openai.NewClient(provider.APIKey,
		openai.WithBaseURL(provider.BaseURL),
		openai.WithTimeout(provider.Timeout),
		openai.WithMaxRetries(provider.MaxRetries),
	)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	var llm usecase.CompletionProvider = openaiClient
	if cfg.Breaker.Enabled {
		breaker, err := openai.NewBreaker(openaiClient, cfg.Breaker.Failures, cfg.Breaker.OpenTimeout)
		if err != nil {
			slog.Error("failed to create circuit breaker", "err", err)
			os.Exit(1)
		}
		llm = breaker
	}

	completion, err := usecase.NewCompletionService(provider, llm)
	if err != nil {
		slog.Error("failed to create completion service", "err", err)
		os.Exit(1)
	}

	// ---- History ----
	store, err := historyStore(ctx, cfg.History, awsCfg)
	if err != nil {
		slog.Error("failed to create history store", "backend", cfg.History.Backend, "err", err)
		os.Exit(1)
	}

	// A nil interface keeps the history routes disabled.
	var history handler.HistoryUseCase
	if store != nil {
		svc, err := usecase.NewHistoryService(store)
		if err != nil {
			slog.Error("failed to create history service", "err", err)
			os.Exit(1)
		}
		history = svc
	}

	// ---- Handler ----
	h, err := handler.NewHandler(completion, history)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	slog.Info("chat service starting",
		"model", provider.Model,
		"environment", provider.Environment,
		"breaker", cfg.Breaker.Enabled,
		"history", cfg.History.Backend,
	)
	lambda.Start(h.Handle)
}

// resolveProvider fills the API key from SSM when a parameter name is set and
// no key came from the environment. Failures leave the key unset.
func resolveProvider(ctx context.Context, cfg config.Config, awsCfg aws.Config) config.ProviderConfig {
	if cfg.APIKeyParam == "" {
		return cfg.Provider
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		return cfg.Provider
	}
	provider, err := config.ResolveAPIKey(ctx, cfg.Provider, ssmClient, cfg.APIKeyParam)
	if err != nil {
		slog.Error("failed to resolve OpenAI API key", "param", cfg.APIKeyParam, "err", err)
		return cfg.Provider
	}
	return provider
}

func historyStore(ctx context.Context, hc config.HistoryConfig, awsCfg aws.Config) (usecase.HistoryStore, error) {
	switch hc.Backend {
	case config.HistoryDynamoDB:
		return repository.NewDynamo(awsdynamodb.NewFromConfig(awsCfg), hc.Table)
	case config.HistoryPostgres:
		pool, err := repository.ConnectPostgres(ctx, hc.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewPostgres(pool)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}
