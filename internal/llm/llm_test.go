package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/config"
)

func testConfig(base string) config.LLMConfig {
	return config.LLMConfig{APIKey: "test-key-123456", BaseURL: base, Model: "gemini-2.0-flash", Temperature: 0.7, Timeout: 5 * time.Second}
}

func TestGenerateSendsPromptAndReadsText(t *testing.T) {
	var gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"  Plan of Action  "}]}}]}`)
	}))
	defer srv.Close()

	text, errGen := NewGeminiClient(testConfig(srv.URL+"/"), srv.Client()).Generate(context.Background(), "write a POA")
	require.NoError(t, errGen)
	assert.Equal(t, "Plan of Action", text)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "test-key-123456", gotKey)
	assert.Equal(t, "write a POA", gjson.Get(gotBody, "contents.0.parts.0.text").String())
	assert.InDelta(t, 0.7, gjson.Get(gotBody, "generationConfig.temperature").Float(), 1e-9)
}

func TestGenerateErrorsAreGenerationKind(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded"}}`)
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"candidates":[{"finishReason":"SAFETY"}]}`)
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()
			_, errGen := NewGeminiClient(testConfig(srv.URL), srv.Client()).Generate(context.Background(), "p")
			assert.True(t, apperr.IsKind(errGen, apperr.KindGeneration), "got %v", errGen)
		})
	}
}

func TestGenerateTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, errGen := NewGeminiClient(testConfig(base), nil).Generate(context.Background(), "p")
	require.True(t, apperr.IsKind(errGen, apperr.KindGeneration), "got %v", errGen)
	assert.False(t, strings.Contains(errGen.Error(), "test-key-123456"), "key leaked: %v", errGen)
}

func TestGenerateWithoutKey(t *testing.T) {
	_, errGen := NewGeminiClient(config.LLMConfig{}, nil).Generate(context.Background(), "p")
	assert.True(t, apperr.IsKind(errGen, apperr.KindGeneration))
}
