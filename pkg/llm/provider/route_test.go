package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathpad/pkg/llm/provider"
)

var _ = Describe("Resolve", func() {
	DescribeTable("routes models by name",
		func(model string, want provider.Route) {
			Expect(provider.Resolve(model)).To(Equal(want))
		},
		Entry("gemini prefix", "gemini-2.5-pro", provider.Route{
			Provider: provider.Gemini, Endpoint: provider.EndpointGemini,
			Credential: provider.SlotGoogle, Thinking: provider.ThinkingNone,
		}),
		Entry("glm family", "glm-4.5-flash", provider.Route{
			Provider: provider.OpenAI, Endpoint: provider.EndpointAlternate,
			Credential: provider.SlotDMX, Thinking: provider.ThinkingObject,
		}),
		Entry("deepseek family, any case", "DeepSeek-OCR-Free", provider.Route{
			Provider: provider.OpenAI, Endpoint: provider.EndpointAlternate,
			Credential: provider.SlotDMX, Thinking: provider.ThinkingObject,
		}),
		Entry("default", "qwen3-max", provider.Route{
			Provider: provider.OpenAI, Endpoint: provider.EndpointDashScope,
			Credential: provider.SlotDashScope, Thinking: provider.ThinkingFlag,
		}),
		Entry("gemini only as a prefix", "my-gemini", provider.Route{
			Provider: provider.OpenAI, Endpoint: provider.EndpointDashScope,
			Credential: provider.SlotDashScope, Thinking: provider.ThinkingFlag,
		}),
	)
})

var _ = Describe("New", func() {
	It("builds the variant for each route", func() {
		p, err := provider.New(provider.Resolve("gemini-2.5-pro"), "https://g.test", "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name()).To(Equal("gemini"))

		p, err = provider.New(provider.Resolve("qwen3-max"), "https://q.test", "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name()).To(Equal("openai"))
	})

	It("rejects unknown providers", func() {
		_, err := provider.New(provider.Route{Provider: "bedrock"}, "", "")
		Expect(err).To(MatchError(ContainSubstring("unknown provider type")))
	})
})
