package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questlogger/questlogger/internal/config"
	"github.com/questlogger/questlogger/internal/models"
)

var allStyles = []models.NoteStyle{
	models.StyleStandard, models.StyleBulletPoints, models.StyleSummary,
	models.StyleActionItems, models.StyleCustom, models.StyleBlogPost,
	models.StyleVideoScript, models.StyleSocialMediaPost, models.StyleTaskList,
	models.StyleMeetingNotes, models.StyleEmailDraft, models.StyleCreativeWriting,
	models.StyleCodeDocs, models.StyleNewsletter, models.StyleAcademicPaper,
}

func TestStyleSystemPromptsAreDistinct(t *testing.T) {
	seen := map[string]models.NoteStyle{}
	for _, style := range allStyles {
		prompt := styleSystemPrompt(style)
		require.NotEmpty(t, prompt, "style %s has no prompt", style)

		if prev, ok := seen[prompt]; ok {
			t.Fatalf("styles %s and %s share a prompt", prev, style)
		}
		seen[prompt] = style
	}
}

func TestStyleSystemPromptFallsBackToStandard(t *testing.T) {
	assert.Equal(t, styleSystemPrompt(models.StyleStandard), styleSystemPrompt("unheard_of"))
}

func TestNeedsActionItems(t *testing.T) {
	assert.True(t, NeedsActionItems(models.StyleActionItems))
	assert.True(t, NeedsActionItems(models.StyleTaskList))
	assert.True(t, NeedsActionItems(models.StyleMeetingNotes))
	assert.False(t, NeedsActionItems(models.StyleStandard))
	assert.False(t, NeedsActionItems(models.StyleSummary))
}

func TestClientSendsAttributionHeaders(t *testing.T) {
	var gotReferer, gotTitle string
	var gotReq struct {
		Model       string  `json:"model"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Rewritten."}},
			},
		})
	}))
	defer server.Close()

	client := New(&config.Config{
		OpenRouterAPIKey:       "test-key",
		OpenRouterAPIURL:       server.URL + "/v1",
		OpenRouterDefaultModel: "mistralai/mistral-7b-instruct",
		FrontendURL:            "http://localhost:3000",
	})

	out, err := client.ProcessStyle(context.Background(), "raw text", models.StyleBulletPoints)
	require.NoError(t, err)
	assert.Equal(t, "Rewritten.", out)

	assert.Equal(t, "http://localhost:3000", gotReferer)
	assert.Equal(t, "QuestLogger", gotTitle)
	assert.Equal(t, "mistralai/mistral-7b-instruct", gotReq.Model)
	assert.InDelta(t, 0.7, gotReq.Temperature, 0.001)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "raw text")
}
