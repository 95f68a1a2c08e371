package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/llm"
	"github.com/dsavelev/snowchat/internal/server/config"
	"github.com/dsavelev/snowchat/internal/server/models"
)

type fakeCompleter struct {
	completeFn func(ctx context.Context, apiKey, model string, messages []llm.Message, temperature float64, maxTokens int) (*llm.Completion, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, apiKey, model string, messages []llm.Message, temperature float64, maxTokens int) (*llm.Completion, error) {
	return f.completeFn(ctx, apiKey, model, messages, temperature, maxTokens)
}

func newAssistantService(settings *fakeSettingsRepo, c completer) *AssistantService {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return NewAssistantService(nil, &fakeRepoManager{settings: settings}, c, cfg, testLogger())
}

func TestAssistantComplete_DisabledWhenNoSettings(t *testing.T) {
	s := newAssistantService(&fakeSettingsRepo{}, &fakeCompleter{})

	_, err := s.Complete(context.Background(), "u-1", []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, common.ErrAssistantDisabled)
}

func TestAssistantComplete_DisabledWhenSwitchedOff(t *testing.T) {
	settings := &fakeSettingsRepo{
		getFn: func(ctx context.Context, userID string) (*models.ChatSettings, error) {
			return &models.ChatSettings{UserID: userID, APIKey: "sk-test", IsEnabled: false}, nil
		},
	}
	s := newAssistantService(settings, &fakeCompleter{})

	_, err := s.Complete(context.Background(), "u-1", nil)
	assert.ErrorIs(t, err, common.ErrAssistantDisabled)
}

func TestAssistantComplete_UsesStoredKeyAndConfiguredModel(t *testing.T) {
	settings := &fakeSettingsRepo{
		getFn: func(ctx context.Context, userID string) (*models.ChatSettings, error) {
			return &models.ChatSettings{UserID: userID, APIKey: "sk-test", IsEnabled: true}, nil
		},
	}
	var gotKey, gotModel string
	var gotTemp float64
	var gotMax int
	c := &fakeCompleter{
		completeFn: func(ctx context.Context, apiKey, model string, messages []llm.Message, temperature float64, maxTokens int) (*llm.Completion, error) {
			gotKey, gotModel, gotTemp, gotMax = apiKey, model, temperature, maxTokens
			return &llm.Completion{Content: "use GlideRecord"}, nil
		},
	}
	s := newAssistantService(settings, c)

	msg, err := s.Complete(context.Background(), "u-1", []llm.Message{{Role: llm.RoleUser, Content: "query incidents"}})
	require.NoError(t, err)

	assert.Equal(t, "sk-test", gotKey)
	assert.Equal(t, "gpt-4o-mini", gotModel)
	assert.Equal(t, defaultTemperature, gotTemp)
	assert.Equal(t, defaultMaxTokens, gotMax)
	assert.Equal(t, models.SenderAI, msg.Sender)
	assert.Equal(t, "use GlideRecord", msg.Content)
	assert.Nil(t, msg.CodeBlocks)
}

func TestAssistantComplete_ExtractsCodeBlocks(t *testing.T) {
	settings := &fakeSettingsRepo{
		getFn: func(ctx context.Context, userID string) (*models.ChatSettings, error) {
			return &models.ChatSettings{UserID: userID, APIKey: "sk-test", IsEnabled: true}, nil
		},
	}
	reply := "Try this:\n```javascript\nvar gr = new GlideRecord('incident');\ngr.query();\n```\nDone."
	c := &fakeCompleter{
		completeFn: func(ctx context.Context, apiKey, model string, messages []llm.Message, temperature float64, maxTokens int) (*llm.Completion, error) {
			return &llm.Completion{Content: reply}, nil
		},
	}
	s := newAssistantService(settings, c)

	msg, err := s.Complete(context.Background(), "u-1", nil)
	require.NoError(t, err)
	require.Len(t, msg.CodeBlocks, 1)
	assert.Equal(t, "javascript", msg.CodeBlocks[0].Language)
	assert.Equal(t, "var gr = new GlideRecord('incident');\ngr.query();", msg.CodeBlocks[0].Code)
	assert.NotEmpty(t, msg.CodeBlocks[0].ID)
}

func TestAssistantComplete_WrapsCompletionError(t *testing.T) {
	settings := &fakeSettingsRepo{
		getFn: func(ctx context.Context, userID string) (*models.ChatSettings, error) {
			return &models.ChatSettings{UserID: userID, APIKey: "sk-test", IsEnabled: true}, nil
		},
	}
	c := &fakeCompleter{
		completeFn: func(ctx context.Context, apiKey, model string, messages []llm.Message, temperature float64, maxTokens int) (*llm.Completion, error) {
			return nil, errors.New("upstream 500")
		},
	}
	s := newAssistantService(settings, c)

	_, err := s.Complete(context.Background(), "u-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error completing chat")
	assert.NotErrorIs(t, err, common.ErrAssistantDisabled)
}

func TestGetSettings_BlanksAPIKey(t *testing.T) {
	settings := &fakeSettingsRepo{
		getFn: func(ctx context.Context, userID string) (*models.ChatSettings, error) {
			return &models.ChatSettings{UserID: userID, APIKey: "sk-test", IsEnabled: true}, nil
		},
	}
	s := newAssistantService(settings, &fakeCompleter{})

	got := s.GetSettings(context.Background(), "u-1")
	require.NotNil(t, got)
	assert.Empty(t, got.APIKey)
	assert.True(t, got.IsEnabled)
}

func TestGetSettings_NilWhenMissing(t *testing.T) {
	s := newAssistantService(&fakeSettingsRepo{}, &fakeCompleter{})
	assert.Nil(t, s.GetSettings(context.Background(), "u-1"))
}

func TestSaveSettings_BlanksAPIKeyInResult(t *testing.T) {
	var stored *models.ChatSettings
	settings := &fakeSettingsRepo{
		upsertFn: func(ctx context.Context, s *models.ChatSettings) (*models.ChatSettings, error) {
			stored = s
			return s, nil
		},
	}
	s := newAssistantService(settings, &fakeCompleter{})

	got, err := s.SaveSettings(context.Background(), "u-1", "sk-test", true)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", stored.APIKey, "key reaches storage")
	assert.Empty(t, got.APIKey, "key never leaves the service")
}

func TestExtractCodeBlocks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []struct{ lang, code string }
	}{
		{
			name:    "no fences",
			content: "plain answer",
			want:    nil,
		},
		{
			name:    "language tag kept",
			content: "```python\nprint('x')\n```",
			want:    []struct{ lang, code string }{{"python", "print('x')"}},
		},
		{
			name:    "missing tag defaults to javascript",
			content: "```\ngs.info('x');\n```",
			want:    []struct{ lang, code string }{{"javascript", "gs.info('x');"}},
		},
		{
			name:    "multiple blocks in order",
			content: "a\n```js\none();\n```\nb\n```sql\nSELECT 1;\n```",
			want: []struct{ lang, code string }{
				{"js", "one();"},
				{"sql", "SELECT 1;"},
			},
		},
		{
			name:    "empty fence skipped",
			content: "```\n\n```",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCodeBlocks(tt.content)
			require.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want.lang, got[i].Language)
				assert.Equal(t, want.code, got[i].Code)
				assert.NotEmpty(t, got[i].ID)
			}
		})
	}
}
