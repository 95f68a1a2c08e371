package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/llm"
	"github.com/dsavelev/snowchat/internal/logging"
	"github.com/dsavelev/snowchat/internal/server/config"
	"github.com/dsavelev/snowchat/internal/server/models"
	"github.com/dsavelev/snowchat/internal/server/repositories/repomanager"
)

// completer is the subset of llm.Client used by the assistant.
type completer interface {
	Complete(ctx context.Context, apiKey, model string, messages []llm.Message, temperature float64, maxTokens int) (*llm.Completion, error)
}

// fencedBlock matches ```lang\n ... ``` fences in an assistant reply.
var fencedBlock = regexp.MustCompile("(?s)```([a-zA-Z0-9+-]*)\\n?(.*?)```")

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
)

// AssistantService turns a prompt history into an assistant message using the
// caller's own LLM settings.
type AssistantService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	llm         completer
	model       string
	log         logging.Logger
}

// NewAssistantService constructs an AssistantService with the configured
// default model.
func NewAssistantService(db *sql.DB, m repomanager.RepositoryManager, client completer, cfg *config.Config, log logging.Logger) *AssistantService {
	return &AssistantService{
		db:          db,
		repomanager: m,
		llm:         client,
		model:       cfg.LLMModel,
		log:         log,
	}
}

// GetSettings returns the caller's LLM settings with the key blanked, or nil
// when none are stored.
func (s *AssistantService) GetSettings(ctx context.Context, userID string) *models.ChatSettings {
	settings, err := s.repomanager.ChatSettings(s.db).GetByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "error loading chat settings", "error", err)
		}
		return nil
	}

	result := *settings
	result.APIKey = ""
	return &result
}

// SaveSettings stores or replaces the caller's LLM settings.
func (s *AssistantService) SaveSettings(ctx context.Context, userID, apiKey string, enabled bool) (*models.ChatSettings, error) {
	settings := &models.ChatSettings{UserID: userID, APIKey: apiKey, IsEnabled: enabled}

	saved, err := s.repomanager.ChatSettings(s.db).Upsert(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("error saving chat settings: %w", err)
	}

	result := *saved
	result.APIKey = ""
	return &result, nil
}

// Complete sends the prompt history to the completion endpoint using the
// caller's stored API key and returns the assistant reply as a message with
// any fenced code blocks extracted into structured metadata.
//
// Missing or disabled settings yield common.ErrAssistantDisabled.
func (s *AssistantService) Complete(ctx context.Context, userID string, history []llm.Message) (*models.Message, error) {
	settings, err := s.repomanager.ChatSettings(s.db).GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAssistantDisabled
		}
		return nil, fmt.Errorf("error loading chat settings: %w", err)
	}
	if !settings.IsEnabled {
		return nil, common.ErrAssistantDisabled
	}

	completion, err := s.llm.Complete(ctx, settings.APIKey, s.model, history, defaultTemperature, defaultMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error completing chat: %w", err)
	}

	return &models.Message{
		Content:    completion.Content,
		Sender:     models.SenderAI,
		CodeBlocks: ExtractCodeBlocks(completion.Content),
	}, nil
}

// ExtractCodeBlocks pulls fenced code snippets out of content. Each block
// gets a fresh id; the language tag defaults to "javascript" because
// assistant replies are predominantly ServiceNow server scripts.
func ExtractCodeBlocks(content string) []models.CodeBlock {
	matches := fencedBlock.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	blocks := make([]models.CodeBlock, 0, len(matches))
	for _, m := range matches {
		language := m[1]
		if language == "" {
			language = "javascript"
		}
		code := strings.TrimRight(m[2], "\n")
		if strings.TrimSpace(code) == "" {
			continue
		}
		blocks = append(blocks, models.CodeBlock{
			ID:       uuid.NewString(),
			Code:     code,
			Language: language,
		})
	}
	if len(blocks) == 0 {
		return nil
	}
	return blocks
}
