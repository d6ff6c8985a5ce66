package provider

import (
	"fmt"

	"github.com/papercomputeco/mathpad/pkg/llm/provider/gemini"
	"github.com/papercomputeco/mathpad/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	OpenAI = "openai"
	Gemini = "gemini"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{OpenAI, Gemini}
}

// New creates the Provider serving route against baseURL with apiKey.
// Returns an error if the route names an unknown provider.
func New(route Route, baseURL, apiKey string) (Provider, error) {
	switch route.Provider {
	case OpenAI:
		return openai.New(openai.Config{
			Endpoint: baseURL,
			APIKey:   apiKey,
			Thinking: thinkingStyle(route.Thinking),
		}), nil
	case Gemini:
		return gemini.New(gemini.Config{
			BaseURL: baseURL,
			APIKey:  apiKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", route.Provider, SupportedProviders())
	}
}

func thinkingStyle(s ThinkingShape) openai.ThinkingStyle {
	switch s {
	case ThinkingFlag:
		return openai.ThinkingFlag
	case ThinkingObject:
		return openai.ThinkingObject
	default:
		return openai.ThinkingOff
	}
}
