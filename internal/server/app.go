// Package server initializes and runs the application server. It opens the
// database, runs migrations, wires the service layer and starts the HTTP API
// with graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dsavelev/snowchat/internal/llm"
	"github.com/dsavelev/snowchat/internal/logging"
	"github.com/dsavelev/snowchat/internal/server/config"
	"github.com/dsavelev/snowchat/internal/server/httpapi"
	"github.com/dsavelev/snowchat/internal/server/repositories/repomanager"
	"github.com/dsavelev/snowchat/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	credentials *services.CredentialService
	chat        *services.ChatService
	assistant   *services.AssistantService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := repomanager.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	cs := services.NewCredentialService(db, m, c, logger)
	chs := services.NewChatService(db, m, logger)
	llmClient := llm.NewClient(
		llm.WithBaseURL(c.LLMBaseURL),
		llm.WithHTTPClient(&http.Client{Timeout: c.RequestTimeout}),
	)
	as := services.NewAssistantService(db, m, llmClient, c, logger)

	return &App{
		config:      c,
		logger:      logger,
		credentials: cs,
		chat:        chs,
		assistant:   as,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(
		app.config.EndpointAddrHTTP, app.logger,
		app.credentials, app.chat, app.assistant,
		app.config.JWTSecret)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
