// Package llm talks to OpenRouter through the OpenAI-compatible chat
// completions API. All helpers return the raw completion text; callers
// decide what to do with empty results.
package llm

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/questlogger/questlogger/internal/config"
	"github.com/questlogger/questlogger/internal/models"
)

// Client wraps the go-openai client pointed at OpenRouter.
type Client struct {
	api   *openai.Client
	model string
}

// headerTransport injects the attribution headers OpenRouter expects.
type headerTransport struct {
	base    http.RoundTripper
	referer string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("HTTP-Referer", t.referer)
	req.Header.Set("X-Title", "QuestLogger")

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func New(cfg *config.Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.OpenRouterAPIKey)
	clientCfg.BaseURL = cfg.OpenRouterAPIURL
	clientCfg.HTTPClient = &http.Client{
		Transport: &headerTransport{referer: cfg.FrontendURL},
	}

	return &Client{
		api:   openai.NewClientWithConfig(clientCfg),
		model: cfg.OpenRouterDefaultModel,
	}
}

func (c *Client) complete(ctx context.Context, systemPrompt, prompt string, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}

// ProcessStyle rewrites content in the requested note style.
func (c *Client) ProcessStyle(ctx context.Context, content string, style models.NoteStyle) (string, error) {
	prompt := fmt.Sprintf("Process this content according to the %s style:\n%s", style, content)
	return c.complete(ctx, styleSystemPrompt(style), prompt, 0.7)
}

// Summarize produces a 3-5 sentence summary of content.
func (c *Client) Summarize(ctx context.Context, content string) (string, error) {
	prompt := fmt.Sprintf("Create a concise summary (3-5 sentences) of the main points in this content:\n%s", content)
	system := "You are a summarization expert. Your task is to extract the key points from a piece of content and present them in a concise, clear manner. Focus on the most important information."
	return c.complete(ctx, system, prompt, 0.5)
}

// ExtractActionItems pulls tasks and to-dos out of content as a
// bulleted list.
func (c *Client) ExtractActionItems(ctx context.Context, content string) (string, error) {
	prompt := fmt.Sprintf("Extract all action items, tasks or to-dos mentioned in this content:\n%s\n\nFormat as a bulleted list. If no specific actions are mentioned, respond with \"No action items identified.\"", content)
	system := "You are an action item extraction specialist. Your task is to identify all tasks, to-dos, and action items mentioned in the content. Format them as a clear, actionable list."
	return c.complete(ctx, system, prompt, 0.3)
}

// Translate renders text in targetLanguage, preserving tone and
// formatting.
func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text to %s. Preserve formatting and tone. Respond with the translation only.\n\n%s", targetLanguage, text)
	system := "You are a professional translator."
	return c.complete(ctx, system, prompt, 0.3)
}

// NeedsActionItems reports whether the style implies task extraction.
func NeedsActionItems(style models.NoteStyle) bool {
	switch style {
	case models.StyleActionItems, models.StyleTaskList, models.StyleMeetingNotes:
		return true
	}
	return false
}
