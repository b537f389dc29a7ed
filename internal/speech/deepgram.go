// Package speech provides speech-to-text through Deepgram's
// pre-recorded transcription REST API.
package speech

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/questlogger/questlogger/internal/config"
)

const deepgramBaseURL = "https://api.deepgram.com"

// TranscriptionResult is the provider-independent transcription output.
type TranscriptionResult struct {
	Text     string
	Language string
	Duration float64 // seconds
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (TranscriptionResult, error)
}

// DeepgramClient calls Deepgram's /v1/listen endpoint.
type DeepgramClient struct {
	client *resty.Client
	model  string
}

// languageNames maps Deepgram language codes to display names for the
// /voice/languages endpoint.
var languageNames = []struct{ Code, Name string }{
	{"en", "English"}, {"es", "Spanish"}, {"fr", "French"},
	{"de", "German"}, {"it", "Italian"}, {"ja", "Japanese"},
	{"ko", "Korean"}, {"pt", "Portuguese"}, {"ru", "Russian"},
	{"zh", "Chinese"}, {"nl", "Dutch"}, {"hi", "Hindi"},
	{"id", "Indonesian"}, {"tr", "Turkish"}, {"uk", "Ukrainian"},
	{"sv", "Swedish"},
}

// SupportedLanguages lists the languages Deepgram can detect.
func SupportedLanguages() []map[string]string {
	out := make([]map[string]string, 0, len(languageNames))
	for _, l := range languageNames {
		out = append(out, map[string]string{"code": l.Code, "name": l.Name})
	}
	return out
}

func NewDeepgramClient(cfg *config.Config) *DeepgramClient {
	cli := resty.New().
		SetBaseURL(deepgramBaseURL).
		SetTimeout(cfg.STTTimeout).
		SetHeader("Authorization", "Token "+cfg.DeepgramAPIKey)

	return &DeepgramClient{client: cli, model: cfg.DeepgramModel}
}

// listenResponse mirrors the parts of Deepgram's response we read.
type listenResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends the audio buffer to Deepgram and returns the first
// alternative of the first channel.
func (d *DeepgramClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (TranscriptionResult, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var out listenResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", mimeType).
		SetQueryParams(map[string]string{
			"model":           d.model,
			"smart_format":    "true",
			"punctuate":       "true",
			"detect_language": "true",
		}).
		SetBody(audio).
		SetResult(&out).
		Post("/v1/listen")
	if err != nil {
		return TranscriptionResult{}, fmt.Errorf("deepgram request: %w", err)
	}
	if resp.IsError() {
		return TranscriptionResult{}, fmt.Errorf("deepgram: %s: %s", resp.Status(), resp.String())
	}

	result := TranscriptionResult{Duration: out.Metadata.Duration}
	if len(out.Results.Channels) > 0 {
		channel := out.Results.Channels[0]
		result.Language = channel.DetectedLanguage
		if len(channel.Alternatives) > 0 {
			result.Text = channel.Alternatives[0].Transcript
		}
	}
	if result.Language == "" {
		result.Language = "en"
	}

	return result, nil
}
