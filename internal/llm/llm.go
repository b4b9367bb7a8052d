// Package llm calls the text generation backend used for POA drafting.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/config"
	"github.com/zeyuan/appeal-service/internal/util"
)

const maxErrorBody = 512

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient is a Generator backed by the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	http        *http.Client
}

// NewGeminiClient builds a client from config. A nil httpClient uses one with cfg.Timeout.
func NewGeminiClient(cfg config.LLMConfig, httpClient *http.Client) *GeminiClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &GeminiClient{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		http:        httpClient,
	}
}

// Generate sends one request. There are no retries.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (text string, err error) {
	if c.apiKey == "" {
		return "", apperr.Generation("generation backend is not configured", nil)
	}
	body, errBody := requestBody(prompt, c.temperature)
	if errBody != nil {
		return "", apperr.Generation("build generation request", errBody)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if errReq != nil {
		return "", apperr.Generation("build generation request", errReq)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, errDo := c.http.Do(req)
	if errDo != nil {
		// The url in *url.Error carries the key.
		return "", apperr.Generation("generation request failed", errors.New(strings.ReplaceAll(errDo.Error(), c.apiKey, util.HideSecret(c.apiKey))))
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil && err == nil {
			err = apperr.Generation("close generation response", errClose)
		}
	}()

	raw, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return "", apperr.Generation("read generation response", errRead)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = truncate(string(raw), maxErrorBody)
		}
		return "", apperr.Generation(fmt.Sprintf("generation backend returned status %d", resp.StatusCode), errors.New(msg))
	}

	text = strings.TrimSpace(gjson.GetBytes(raw, "candidates.0.content.parts.0.text").String())
	if text == "" {
		reason := gjson.GetBytes(raw, "candidates.0.finishReason").String()
		if reason == "" {
			reason = gjson.GetBytes(raw, "promptFeedback.blockReason").String()
		}
		return "", apperr.Generation("generation returned no text", fmt.Errorf("finish reason %q after %s", reason, time.Since(started).Round(time.Millisecond)))
	}
	return text, nil
}

func requestBody(prompt string, temperature float64) (string, error) {
	body, errSet := sjson.Set(`{}`, "contents.0.role", "user")
	if errSet != nil {
		return "", errSet
	}
	if body, errSet = sjson.Set(body, "contents.0.parts.0.text", prompt); errSet != nil {
		return "", errSet
	}
	if body, errSet = sjson.Set(body, "generationConfig.temperature", temperature); errSet != nil {
		return "", errSet
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
