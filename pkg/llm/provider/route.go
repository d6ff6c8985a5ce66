package provider

import "strings"

// Endpoint names a configured upstream base URL.
type Endpoint string

const (
	// EndpointDashScope is the default OpenAI-compatible endpoint.
	EndpointDashScope Endpoint = "dashscope"

	// EndpointAlternate is the OpenAI-compatible aggregator used for
	// third-party model families.
	EndpointAlternate Endpoint = "alternate"

	// EndpointGemini is the generative-content API base.
	EndpointGemini Endpoint = "gemini"
)

// CredentialSlot names the stored API key a route authenticates with.
type CredentialSlot string

const (
	SlotDashScope CredentialSlot = "dashscope"
	SlotDMX       CredentialSlot = "dmx"
	SlotGoogle    CredentialSlot = "google"
)

// ThinkingShape is how a route encodes the extended reasoning toggle.
type ThinkingShape int

const (
	// ThinkingNone sends no toggle.
	ThinkingNone ThinkingShape = iota

	// ThinkingFlag sends "enable_thinking": true|false.
	ThinkingFlag

	// ThinkingObject sends "thinking": {"type": "enabled"|"disabled"}.
	ThinkingObject
)

func (s ThinkingShape) String() string {
	switch s {
	case ThinkingFlag:
		return "enable_thinking"
	case ThinkingObject:
		return "thinking"
	default:
		return "none"
	}
}

// Route is everything needed to reach the upstream serving a model.
type Route struct {
	Provider   string
	Endpoint   Endpoint
	Credential CredentialSlot
	Thinking   ThinkingShape
}

// alternateFamilies are served by the alternate endpoint. Matched
// case-insensitively anywhere in the model name.
var alternateFamilies = []string{"glm", "deepseek"}

// Resolve maps a model identifier to its route. It is the only place that
// knows which provider serves which model.
func Resolve(model string) Route {
	if strings.HasPrefix(model, "gemini") {
		return Route{
			Provider:   Gemini,
			Endpoint:   EndpointGemini,
			Credential: SlotGoogle,
			Thinking:   ThinkingNone,
		}
	}

	lower := strings.ToLower(model)
	for _, family := range alternateFamilies {
		if strings.Contains(lower, family) {
			return Route{
				Provider:   OpenAI,
				Endpoint:   EndpointAlternate,
				Credential: SlotDMX,
				Thinking:   ThinkingObject,
			}
		}
	}

	return Route{
		Provider:   OpenAI,
		Endpoint:   EndpointDashScope,
		Credential: SlotDashScope,
		Thinking:   ThinkingFlag,
	}
}
