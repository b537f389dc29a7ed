package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questlogger/questlogger/internal/config"
)

func testClient(serverURL string) *DeepgramClient {
	d := NewDeepgramClient(&config.Config{
		DeepgramAPIKey: "test-key",
		DeepgramModel:  "nova-2",
		STTTimeout:     5 * time.Second,
	})
	d.client.SetBaseURL(serverURL)
	return d
}

func TestTranscribe(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotQuery map[string]string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"metadata": map[string]any{"duration": 93.5},
			"results": map[string]any{
				"channels": []map[string]any{
					{
						"detected_language": "es",
						"alternatives": []map[string]any{
							{"transcript": "Hola, esto es una prueba."},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	result, err := testClient(server.URL).Transcribe(context.Background(), []byte("fake-audio"), "audio/mpeg")
	require.NoError(t, err)

	assert.Equal(t, "Hola, esto es una prueba.", result.Text)
	assert.Equal(t, "es", result.Language)
	assert.InDelta(t, 93.5, result.Duration, 0.001)

	assert.Equal(t, "/v1/listen", gotPath)
	assert.Equal(t, "Token test-key", gotAuth)
	assert.Equal(t, "audio/mpeg", gotContentType)
	assert.Equal(t, []byte("fake-audio"), gotBody)
	assert.Equal(t, map[string]string{
		"model":           "nova-2",
		"smart_format":    "true",
		"punctuate":       "true",
		"detect_language": "true",
	}, gotQuery)
}

func TestTranscribeDefaultsLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"metadata": map[string]any{"duration": 10.0},
			"results": map[string]any{
				"channels": []map[string]any{
					{"alternatives": []map[string]any{{"transcript": "Hello."}}},
				},
			},
		})
	}))
	defer server.Close()

	result, err := testClient(server.URL).Transcribe(context.Background(), []byte("x"), "")
	require.NoError(t, err)
	assert.Equal(t, "en", result.Language)
}

func TestTranscribeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_msg": "bad request"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Transcribe(context.Background(), []byte("x"), "audio/wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deepgram")
}

func TestSupportedLanguages(t *testing.T) {
	langs := SupportedLanguages()
	require.NotEmpty(t, langs)
	assert.Equal(t, map[string]string{"code": "en", "name": "English"}, langs[0])
}
