package translate

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGoogle          = "google"
	ProviderGroq            = "groq"
	ProviderOpenAI          = "openai"
	ProviderAnthropic       = "anthropic"
	ProviderOpenCode        = "opencode"
	ProviderCustomOpenAI    = "custom-openai"
	ProviderOllama          = "ollama"
	ProviderGoogleTranslate = "google-translate"
)

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for a translation service.
type Provider struct {
	// ID is the provider identifier (google, groq, opencode, etc.).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the HTTP client timeout. Per-call deadlines set by the
	// dispatcher are usually shorter.
	Timeout time.Duration
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google AI (Gemini)",
			BaseURL: "https://generativelanguage.googleapis.com",
			Timeout: 120 * time.Second,
		},
		ProviderGroq: {
			ID:      ProviderGroq,
			Name:    "Groq",
			BaseURL: "https://api.groq.com/openai/v1",
			Timeout: 60 * time.Second,
		},
		ProviderOpenAI: {
			ID:      ProviderOpenAI,
			Name:    "OpenAI",
			BaseURL: "https://api.openai.com/v1",
			Timeout: 60 * time.Second,
		},
		ProviderAnthropic: {
			ID:      ProviderAnthropic,
			Name:    "Anthropic",
			BaseURL: "https://api.anthropic.com/v1",
			Timeout: 120 * time.Second,
		},
		ProviderOpenCode: {
			ID:      ProviderOpenCode,
			Name:    "OpenCode",
			BaseURL: "https://opencode.ai/zen/v1",
			Timeout: 120 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Timeout: 120 * time.Second,
		},
		ProviderGoogleTranslate: {
			ID:      ProviderGoogleTranslate,
			Name:    "Google Cloud Translation",
			BaseURL: "https://translation.googleapis.com/language/translate/v2",
			Timeout: 30 * time.Second,
		},
	}
}

// ProviderIDs returns the known provider IDs, sorted.
func ProviderIDs() []string {
	defaults := DefaultProviders()
	ids := make([]string, 0, len(defaults))
	for id := range defaults {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveProvider starts from the named default and applies overrides.
// An unknown name is treated as the base URL of an OpenAI-compatible
// endpoint.
func ResolveProvider(name, baseURL, apiKey, model, proxy string, timeout time.Duration) Provider {
	var prov Provider
	if p, ok := DefaultProviders()[strings.ToLower(name)]; ok {
		prov = p
	} else {
		prov = Provider{
			ID:      ProviderCustomOpenAI,
			Name:    name,
			BaseURL: name,
			Timeout: 60 * time.Second,
		}
	}

	if baseURL != "" {
		prov.BaseURL = baseURL
	}
	if apiKey != "" {
		prov.APIKey = apiKey
	}
	if model != "" {
		prov.Model = model
	}
	if proxy != "" {
		prov.Proxy = proxy
	}
	if timeout > 0 {
		prov.Timeout = timeout
	}
	return prov
}

var modelExamples = map[string]string{
	ProviderGoogle:       "gemini-2.5-flash, gemini-2.0-flash, gemini-1.5-pro",
	ProviderGroq:         "llama-3.3-70b-versatile, mixtral-8x7b-32768",
	ProviderOpenAI:       "gpt-4o, gpt-4o-mini",
	ProviderAnthropic:    "claude-sonnet-4-5, claude-haiku-4-5",
	ProviderOpenCode:     "big-pickle, gemini-2.5-flash, claude-sonnet-4.5, gpt-4o",
	ProviderOllama:       "llama3.2, qwen2.5, mistral",
	ProviderCustomOpenAI: "gpt-4o, gpt-4o-mini (depends on your endpoint)",
}

// NeedsAPIKey reports whether the provider refuses anonymous requests.
func NeedsAPIKey(id string) bool {
	switch id {
	case ProviderOllama, ProviderOpenCode, ProviderCustomOpenAI:
		return false
	}
	return true
}

// Validate checks that prov has everything a request needs.
func Validate(prov Provider) error {
	if prov.Model == "" && prov.ID != ProviderGoogleTranslate {
		examples := modelExamples[prov.ID]
		if examples == "" {
			examples = "check provider documentation"
		}
		return fmt.Errorf("--model is required for provider '%s'\n\n"+
			"Example models for %s:\n  %s\n\n"+
			"Usage: --provider %s --model MODEL_NAME",
			prov.ID, prov.Name, examples, prov.ID)
	}

	if prov.BaseURL == "" {
		return fmt.Errorf("provider '%s' requires an endpoint URL\n\n"+
			"Pass it directly:\n"+
			"  --base-url https://api.example.com/v1", prov.ID)
	}
	if _, err := url.Parse(prov.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL %q: %w", prov.BaseURL, err)
	}

	if prov.APIKey == "" && NeedsAPIKey(prov.ID) {
		return fmt.Errorf("provider '%s' requires an API key\n\n"+
			"Option 1: Store your API key:\n"+
			"  textrans auth login --provider %s\n\n"+
			"Option 2: Pass key directly:\n"+
			"  --api-key YOUR_KEY or export TEXTRANS_API_KEY=YOUR_KEY", prov.ID, prov.ID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Support both --proxy flag and HTTP_PROXY/HTTPS_PROXY env vars
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
