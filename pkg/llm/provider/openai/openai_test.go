package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/llm/provider"
	"github.com/papercomputeco/mathpad/pkg/llm/provider/openai"
)

func decodeBody(req *http.Request) map[string]any {
	raw, err := io.ReadAll(req.Body)
	Expect(err).NotTo(HaveOccurred())

	var body map[string]any
	Expect(json.Unmarshal(raw, &body)).To(Succeed())
	return body
}

var _ = Describe("OpenAI Provider", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = openai.New(openai.Config{
			Endpoint: "https://example.test/v1/chat/completions",
			APIKey:   "sk-test",
			Thinking: openai.ThinkingFlag,
		})
	})

	Describe("Name", func() {
		It("returns 'openai'", func() {
			Expect(p.Name()).To(Equal("openai"))
		})
	})

	Describe("Interpret", func() {
		It("extracts content and reasoning from the first choice", func() {
			d, err := p.Interpret(`data: {"choices":[{"delta":{"content":"x","reasoning_content":"because"}}]}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(Equal(&llm.Delta{Content: "x", Reasoning: "because"}))
		})

		It("skips heartbeats and the terminator", func() {
			for _, line := range []string{"", ": ping", "data: [DONE]", "event: message"} {
				d, err := p.Interpret(line)
				Expect(err).NotTo(HaveOccurred())
				Expect(d).To(BeNil())
			}
		})

		It("returns nil for payloads without choices", func() {
			d, err := p.Interpret(`data: {"choices":[],"usage":{"total_tokens":3}}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(BeNil())
		})

		It("reports malformed JSON as a parse error", func() {
			d, err := p.Interpret("data: {bad")
			Expect(d).To(BeNil())

			var parseErr *llm.ParseError
			Expect(err).To(BeAssignableToTypeOf(parseErr))
		})

		It("returns an empty delta for role-only chunks", func() {
			d, err := p.Interpret(`data: {"choices":[{"delta":{"role":"assistant"}}]}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Empty()).To(BeTrue())
		})
	})

	Describe("NewStreamRequest", func() {
		var req *llm.ChatRequest

		BeforeEach(func() {
			req = &llm.ChatRequest{
				Model: "qwen3-max",
				Messages: []llm.Message{
					llm.NewTextMessage(llm.RoleSystem, "be brief"),
					llm.NewTextMessage(llm.RoleUser, "1+1"),
				},
			}
		})

		It("posts a bearer-authenticated streaming body", func() {
			httpReq, err := p.NewStreamRequest(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(httpReq.Method).To(Equal(http.MethodPost))
			Expect(httpReq.URL.String()).To(Equal("https://example.test/v1/chat/completions"))
			Expect(httpReq.Header.Get("Authorization")).To(Equal("Bearer sk-test"))

			body := decodeBody(httpReq)
			Expect(body["model"]).To(Equal("qwen3-max"))
			Expect(body["stream"]).To(BeTrue())
			Expect(body["messages"]).To(HaveLen(2))
			Expect(body).NotTo(HaveKey("thinking"))
		})

		It("sends enable_thinking false explicitly", func() {
			httpReq, err := p.NewStreamRequest(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(decodeBody(httpReq)).To(HaveKeyWithValue("enable_thinking", false))
		})

		It("sends enable_thinking true when thinking", func() {
			req.Thinking = true
			httpReq, err := p.NewStreamRequest(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(decodeBody(httpReq)).To(HaveKeyWithValue("enable_thinking", true))
		})

		Context("with the thinking object style", func() {
			BeforeEach(func() {
				p = openai.New(openai.Config{Endpoint: "https://alt.test/v1", APIKey: "k", Thinking: openai.ThinkingObject})
			})

			It("disables explicitly", func() {
				httpReq, err := p.NewStreamRequest(context.Background(), req)
				Expect(err).NotTo(HaveOccurred())

				body := decodeBody(httpReq)
				Expect(body).NotTo(HaveKey("enable_thinking"))
				Expect(body["thinking"]).To(Equal(map[string]any{"type": "disabled"}))
			})

			It("enables with a budget", func() {
				req.Thinking = true
				req.ThinkingBudget = 2048
				httpReq, err := p.NewStreamRequest(context.Background(), req)
				Expect(err).NotTo(HaveOccurred())
				Expect(decodeBody(httpReq)["thinking"]).To(Equal(map[string]any{"type": "enabled", "budget_tokens": float64(2048)}))
			})
		})
	})

	Describe("vision", func() {
		It("sends images as data URL content parts", func() {
			req := &llm.ChatRequest{
				Model:    "qwen3-vl-plus",
				Messages: []llm.Message{llm.NewImageMessage([]byte("png"), "transcribe")},
			}
			httpReq, err := p.NewVisionRequest(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())

			body := decodeBody(httpReq)
			Expect(body).NotTo(HaveKey("stream"))
			Expect(body).NotTo(HaveKey("enable_thinking"))

			msg := body["messages"].([]any)[0].(map[string]any)
			parts := msg["content"].([]any)
			Expect(parts[0]).To(Equal(map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": "data:image/png;base64,cG5n"},
			}))
			Expect(parts[1]).To(Equal(map[string]any{"type": "text", "text": "transcribe"}))
		})

		It("parses the first choice", func() {
			text, err := p.ParseVisionResponse([]byte(`{"choices":[{"message":{"role":"assistant","content":"x^2"}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("x^2"))
		})

		It("returns empty text without choices", func() {
			text, err := p.ParseVisionResponse([]byte(`{"choices":[]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(BeEmpty())
		})
	})
})
