//go:build !wireinject
// +build !wireinject

// Maintained by hand to mirror the provider set in wire.go. Running
// `go generate ./cmd/app` replaces it with wire's output.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire

package main

import (
	"github.com/neurabot/neurabot-api/internal/bootstrap"
	"github.com/neurabot/neurabot-api/internal/domain/history"
	"github.com/neurabot/neurabot-api/internal/domain/share"
	"github.com/neurabot/neurabot-api/internal/domain/summarizer"
	"github.com/neurabot/neurabot-api/internal/infra/config"
	"github.com/neurabot/neurabot-api/internal/interface/http"
	"github.com/neurabot/neurabot-api/pkg/logger"
)

// Injectors from wire.go:

func initializeApp() (*bootstrap.App, error) {
	configConfig, err := config.Load()
	if err != nil {
		return nil, err
	}
	slogLogger := logger.New()
	summarizerConfig := provideSummaryConfig(configConfig)
	client, err := provideGroqClient(configConfig)
	if err != nil {
		return nil, err
	}
	tokenCounter := provideTokenCounter(configConfig)
	service := summarizer.NewService(summarizerConfig, client, tokenCounter, slogLogger)
	handler := http.NewHandler(service, slogLogger)
	pool := providePostgresPool(configConfig, slogLogger)
	repository := provideHistoryRepository(pool)
	archiver := provideHistoryArchiver(configConfig, slogLogger)
	historyService := history.NewService(repository, archiver, slogLogger)
	historyHandler := http.NewHistoryHandler(historyService, slogLogger)
	shareConfig := provideShareConfig(configConfig)
	store := provideShareStore(configConfig, pool, slogLogger)
	shareService := share.NewService(shareConfig, store, historyService, slogLogger)
	shareHandler := http.NewShareHandler(shareService, slogLogger)
	streamSocket := http.NewStreamSocket(configConfig, service, slogLogger)
	authService := provideAuthService(configConfig, slogLogger)
	server := http.NewRouter(configConfig, handler, historyHandler, shareHandler, streamSocket, authService, slogLogger)
	app := bootstrap.NewApp(configConfig, slogLogger, server, pool)
	return app, nil
}
