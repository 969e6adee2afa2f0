package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/minios-linux/textrans/langmeta"
)

// ---------------------------------------------------------------------------
// API format types
// ---------------------------------------------------------------------------

type apiFormat int

const (
	formatOpenAIChat      apiFormat = iota // OpenAI chat/completions
	formatGeminiNative                     // Google Gemini generateContent
	formatAnthropic                        // Anthropic messages
	formatOpenAIResponses                  // OpenAI responses API
	formatGoogleTranslate                  // Cloud Translation v2
)

// formatFor picks the wire format for a provider. OpenCode serves several
// formats and is dispatched on the model prefix.
func formatFor(prov Provider) apiFormat {
	switch prov.ID {
	case ProviderGoogle:
		return formatGeminiNative
	case ProviderAnthropic:
		return formatAnthropic
	case ProviderGoogleTranslate:
		return formatGoogleTranslate
	case ProviderOpenCode:
		switch {
		case strings.HasPrefix(prov.Model, "gemini-"):
			return formatGeminiNative
		case strings.HasPrefix(prov.Model, "claude-"):
			return formatAnthropic
		case strings.HasPrefix(prov.Model, "gpt-"):
			return formatOpenAIResponses
		}
	}
	return formatOpenAIChat
}

// ---------------------------------------------------------------------------
// HTTP backend
// ---------------------------------------------------------------------------

// HTTPBackend talks to a provider over its HTTP API. It keeps one
// http.Client so connections are pooled across chunks.
type HTTPBackend struct {
	prov    Provider
	format  apiFormat
	prompts PromptOptions
	client  *http.Client
	// Verbose logs each request with log.Printf.
	Verbose bool
}

// NewBackend returns the backend for prov.
func NewBackend(prov Provider, prompts PromptOptions) (*HTTPBackend, error) {
	if prov.BaseURL == "" {
		return nil, fmt.Errorf("provider %s: no base URL configured", prov.ID)
	}
	return &HTTPBackend{
		prov:    prov,
		format:  formatFor(prov),
		prompts: prompts,
		client:  makeHTTPClient(prov.Proxy, prov.Timeout),
	}, nil
}

// Provider returns the provider configuration.
func (b *HTTPBackend) Provider() Provider { return b.prov }

// Translate sends one request. It never retries.
func (b *HTTPBackend) Translate(ctx context.Context, text, source, target string) (string, error) {
	var (
		endpoint string
		headers  map[string]string
		body     []byte
		err      error
	)
	if b.format == formatGoogleTranslate {
		endpoint, headers, body, err = buildTranslateV2Request(b.prov, text, source, target)
	} else {
		endpoint, headers, body, err = buildHTTPRequest(b.prov, b.prompts.Resolve(source, target), text, b.format)
	}
	if err != nil {
		return "", &ProviderError{Provider: b.prov.ID, Err: fmt.Errorf("building request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: b.prov.ID, Err: fmt.Errorf("creating request: %w", err)}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if b.Verbose {
		log.Printf("[DEBUG] %s: POST %s (%d bytes)", b.prov.Name, endpoint, len(body))
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", transportError(b.prov.ID, fmt.Errorf("API request failed: %w", err))
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", transportError(b.prov.ID, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var delay time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			delay = parseRetryDelay(resp.Header, respBody)
			if b.Verbose {
				log.Printf("[WARN] %s: 429 rate limited, server asks to wait %v", b.prov.Name, delay)
			}
		}
		return "", statusError(b.prov.ID, resp.StatusCode, respBody, delay)
	}

	var out string
	if b.format == formatGoogleTranslate {
		out, err = extractTranslateV2Text(respBody)
	} else {
		out, err = extractResponseText(respBody)
	}
	if err != nil {
		return "", decodeError(b.prov.ID, err)
	}
	out = unwrapReply(out)
	if out == "" {
		return "", emptyError(b.prov.ID)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Request builders for each API format
// ---------------------------------------------------------------------------

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

func buildAnthropicRequest(model, systemPrompt, userPrompt string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    string `json:"system,omitempty"`
		Messages  []msg  `json:"messages"`
	}{
		Model:     model,
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages: []msg{
			{Role: "user", Content: userPrompt},
		},
	}
	return json.Marshal(req)
}

func buildOpenAIResponsesRequest(model, prompt string) ([]byte, error) {
	req := struct {
		Model string `json:"model"`
		Input string `json:"input"`
	}{
		Model: model,
		Input: prompt,
	}
	return json.Marshal(req)
}

// buildHTTPRequest constructs the endpoint, headers, and body for an LLM provider.
func buildHTTPRequest(prov Provider, systemPrompt, userPrompt string, format apiFormat) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	baseURL := strings.TrimRight(prov.BaseURL, "/")

	var endpoint string
	var body []byte
	var err error

	switch format {
	case formatGeminiNative:
		if prov.ID == ProviderOpenCode {
			endpoint = fmt.Sprintf("%s/models/%s", baseURL, prov.Model)
		} else {
			// Google AI: POST /v1beta/models/{model}:generateContent
			endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent", baseURL, prov.Model)
		}
		if prov.APIKey != "" {
			headers["x-goog-api-key"] = prov.APIKey
		}
		body, err = buildGeminiRequest(systemPrompt, userPrompt, 0.3)

	case formatAnthropic:
		endpoint = baseURL + "/messages"
		if prov.APIKey != "" {
			headers["x-api-key"] = prov.APIKey
		}
		headers["anthropic-version"] = "2023-06-01"
		body, err = buildAnthropicRequest(prov.Model, systemPrompt, userPrompt)

	case formatOpenAIResponses:
		endpoint = baseURL + "/responses"
		if prov.APIKey != "" {
			headers["Authorization"] = "Bearer " + prov.APIKey
		}
		body, err = buildOpenAIResponsesRequest(prov.Model, systemPrompt+"\n\n"+userPrompt)

	default: // formatOpenAIChat
		if strings.HasSuffix(baseURL, "/chat/completions") {
			endpoint = baseURL
		} else {
			endpoint = baseURL + "/chat/completions"
		}
		if prov.APIKey != "" {
			headers["Authorization"] = "Bearer " + prov.APIKey
		}
		body, err = buildOpenAIChatRequest(prov.Model, systemPrompt, userPrompt, 0.3)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

// buildTranslateV2Request builds a Cloud Translation v2 request. An "auto"
// source is left out so the service detects the language.
func buildTranslateV2Request(prov Provider, text, source, target string) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if prov.APIKey != "" {
		headers["x-goog-api-key"] = prov.APIKey
	}
	req := struct {
		Q      []string `json:"q"`
		Target string   `json:"target"`
		Source string   `json:"source,omitempty"`
		Format string   `json:"format"`
	}{
		Q:      []string{text},
		Target: target,
		Format: "text",
	}
	if !strings.EqualFold(source, langmeta.Auto) {
		req.Source = source
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, nil, err
	}
	return strings.TrimRight(prov.BaseURL, "/"), headers, body, nil
}

// ---------------------------------------------------------------------------
// Response parsers (multi-format)
// ---------------------------------------------------------------------------

// extractResponseText tries all known response formats and returns the text.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// 1. OpenAI chat format: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// 2. Gemini format: candidates[0].content.parts[].text
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok {
					var sb strings.Builder
					for _, p := range parts {
						if part, ok := p.(map[string]any); ok {
							if text, ok := part["text"].(string); ok {
								sb.WriteString(text)
							}
						}
					}
					return sb.String(), nil
				}
			}
			// A candidate without content was blocked or truncated.
			return "", nil
		}
	}

	// 3. Anthropic format: content[].type=="text" -> .text
	if contentArr, ok := raw["content"].([]any); ok {
		for _, c := range contentArr {
			if block, ok := c.(map[string]any); ok && block["type"] == "text" {
				if text, ok := block["text"].(string); ok {
					return text, nil
				}
			}
		}
		return "", nil
	}

	// 4. OpenAI responses format: output[].type=="message" -> .content[].type=="output_text" -> .text
	if output, ok := raw["output"].([]any); ok {
		for _, o := range output {
			item, ok := o.(map[string]any)
			if !ok || item["type"] != "message" {
				continue
			}
			contentArr, _ := item["content"].([]any)
			for _, c := range contentArr {
				if block, ok := c.(map[string]any); ok && block["type"] == "output_text" {
					if text, ok := block["text"].(string); ok {
						return text, nil
					}
				}
			}
		}
		return "", nil
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// extractTranslateV2Text reads data.translations[0].translatedText.
func extractTranslateV2Text(body []byte) (string, error) {
	var resp struct {
		Data *struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if resp.Data == nil {
		return "", errors.New("response has no data field")
	}
	if len(resp.Data.Translations) == 0 {
		return "", nil
	}
	return resp.Data.Translations[0].TranslatedText, nil
}

// ---------------------------------------------------------------------------
// Rate limit: parse 429 response for retry delay
// ---------------------------------------------------------------------------

// parseRetryDelay extracts the retry delay from a 429 response: the
// Retry-After header in seconds, or Google's RetryInfo detail with a
// retryDelay field. Google delays get a 5s buffer. Zero means the server
// gave no hint.
func parseRetryDelay(header http.Header, body []byte) time.Duration {
	if v := strings.TrimSpace(header.Get("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
		}
	}

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return 0
	}
	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			// Durations look like "30s" or "45.123s".
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}
	return 0
}
