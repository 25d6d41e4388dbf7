//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/neurabot/neurabot-api/internal/bootstrap"
	"github.com/neurabot/neurabot-api/internal/domain/history"
	"github.com/neurabot/neurabot-api/internal/domain/share"
	"github.com/neurabot/neurabot-api/internal/domain/summarizer"
	"github.com/neurabot/neurabot-api/internal/infra/config"
	"github.com/neurabot/neurabot-api/internal/infra/llm/groq"
	httpiface "github.com/neurabot/neurabot-api/internal/interface/http"
	"github.com/neurabot/neurabot-api/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideSummaryConfig,
		provideGroqClient,
		provideTokenCounter,
		provideAuthService,
		provideShareConfig,
		providePostgresPool,
		provideHistoryRepository,
		provideHistoryArchiver,
		provideShareStore,
		summarizer.NewService,
		history.NewService,
		share.NewService,
		wire.Bind(new(summarizer.ChatClient), new(*groq.Client)),
		wire.Bind(new(share.HistoryReader), new(history.Service)),
		httpiface.NewHandler,
		httpiface.NewHistoryHandler,
		httpiface.NewShareHandler,
		httpiface.NewStreamSocket,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
