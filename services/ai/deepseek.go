// Package aisvc talks to a DeepSeek-compatible chat completion API.
//
// The client makes exactly one attempt per call with a fixed timeout; every
// failure mode (missing key, network error, bad status, malformed payload)
// surfaces as ai.ErrUnavailable so callers only ever branch on one signal.
package aisvc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/ai"
)

const completionsPath = "/chat/completions"

// versionSuffixRegex matches a trailing /v1 (or /v2...) segment so configured
// base URLs may carry it or not.
var versionSuffixRegex = regexp.MustCompile(`/v\d+$`)

type deepseekClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	logger  core.Logger
}

var _ ai.Client = (*deepseekClient)(nil)

func NewDeepSeekClient(conf *core.Config, logger core.Logger) ai.Client {
	return &deepseekClient{
		apiKey:  conf.AI.APIKey,
		baseURL: normalizeBaseURL(conf.AI.BaseURL),
		model:   conf.AI.Model,
		http:    &http.Client{Timeout: conf.AI.Timeout},
		logger:  logger,
	}
}

// normalizeBaseURL ensures the URL ends with a single /v1 segment.
func normalizeBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	if !versionSuffixRegex.MatchString(base) {
		base += "/v1"
	}
	return base
}

func (c *deepseekClient) Available() bool {
	return c.apiKey != "" && c.baseURL != ""
}

type chatRequest struct {
	Model    string       `json:"model"`
	Messages []ai.Message `json:"messages"`
	Stream   bool         `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *deepseekClient) Complete(ctx context.Context, msgs []ai.Message) (string, error) {
	res, err := c.post(ctx, chatRequest{Model: c.model, Messages: msgs})
	if err != nil {
		return "", err
	}
	defer func() { _ = res.Body.Close() }()

	var payload chatResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", c.unavailable("decoding completion", err)
	}
	if len(payload.Choices) == 0 {
		return "", c.unavailable("empty completion", nil)
	}
	content := strings.TrimSpace(payload.Choices[0].Message.Content)
	if content == "" {
		return "", c.unavailable("blank completion", nil)
	}
	return content, nil
}

// Stream forwards content deltas to fn as they arrive and returns the full
// reply. An error from fn aborts the read and is returned as-is: it means the
// caller's transport is gone, not that the model failed.
func (c *deepseekClient) Stream(ctx context.Context, msgs []ai.Message, fn func(chunk string) error) (string, error) {
	res, err := c.post(ctx, chatRequest{Model: c.model, Messages: msgs, Stream: true})
	if err != nil {
		return "", err
	}
	defer func() { _ = res.Body.Close() }()

	var full strings.Builder
	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var payload chatResponse
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			continue // skip keep-alives and partial frames
		}
		if len(payload.Choices) == 0 {
			continue
		}
		chunk := payload.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if err := fn(chunk); err != nil {
			return "", err
		}
	}
	if err := scanner.Err(); err != nil {
		return "", c.unavailable("reading stream", err)
	}
	if full.Len() == 0 {
		return "", c.unavailable("empty stream", nil)
	}
	return full.String(), nil
}

func (c *deepseekClient) post(ctx context.Context, payload chatRequest) (*http.Response, error) {
	if !c.Available() {
		return nil, ai.ErrUnavailable
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, c.unavailable("encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, c.unavailable("building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, c.unavailable("calling model", err)
	}
	if res.StatusCode != http.StatusOK {
		_ = res.Body.Close()
		return nil, c.unavailable("model returned "+res.Status, nil)
	}
	return res, nil
}

func (c *deepseekClient) unavailable(msg string, err error) error {
	if err != nil {
		c.logger.Warn("deepseek: "+msg+": %v", err)
	} else {
		c.logger.Warn("deepseek: " + msg)
	}
	return ai.ErrUnavailable
}
