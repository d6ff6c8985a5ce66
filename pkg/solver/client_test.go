package solver_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/solver"
)

var _ = Describe("Client", func() {
	var (
		up    *upstream
		trans *transitions
		ctx   context.Context
	)

	BeforeEach(func() {
		up = newUpstream()
		trans = &transitions{}
		ctx = context.Background()
	})

	It("requires a key source", func() {
		_, err := solver.New(solver.Config{})
		Expect(err).To(HaveOccurred())
	})

	Describe("Solve", func() {
		It("folds frames split across reads into content and reasoning", func() {
			up.reply = streamChunks(
				`data: {"choices":[{"delta":{"reasoning_content":"Let"}}]}`+"\n\n"+`data: {"choices":[{"del`,
				`ta":{"reasoning_content":" x=2"}}]}`+"\r\n\r\n",
				": keep-alive\n\n",
				`data: {"choices":[{"delta":{"content":"答案: "}}]}`+"\n\n"+`data:{"choices":[{"delta":{"content":"$x=2$"}}]}`,
				"\n\ndata: [DONE]\n\n",
			)
			c := newClient(up, solver.FamilyQwen, trans.hook)

			var (
				states    []llm.StreamState
				reasoning []bool
			)
			res, err := c.Solve(ctx, solver.SolveRequest{Problem: "x+2=4"}, func(s llm.StreamState, r bool) {
				states = append(states, s)
				reasoning = append(reasoning, r)
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Model).To(Equal("qwen3-max"))
			Expect(res.Reasoning).To(Equal("Let x=2"))
			Expect(res.Content).To(Equal("答案: $x=2$"))

			Expect(states).To(HaveLen(4))
			Expect(reasoning).To(Equal([]bool{true, true, false, false}))
			for _, s := range states {
				Expect(res.Content).To(HavePrefix(s.Content))
				Expect(res.Reasoning).To(HavePrefix(s.Reasoning))
			}

			Expect(trans.list()).To(Equal([]solver.State{
				solver.StateSending, solver.StateStreaming, solver.StateSucceeded,
			}))
		})

		It("sends the default route request with an explicit thinking flag", func() {
			up.reply = streamChunks("data: [DONE]\n\n")
			c := newClient(up, solver.FamilyQwen, nil)

			_, err := c.Solve(ctx, solver.SolveRequest{Problem: "1+1"}, nil)
			Expect(err).NotTo(HaveOccurred())

			req := up.last()
			Expect(req.Path).To(Equal("/dashscope/chat/completions"))
			Expect(req.Header.Get("Authorization")).To(Equal("Bearer ds-key"))
			Expect(req.Body).To(HaveKeyWithValue("model", "qwen3-max"))
			Expect(req.Body).To(HaveKeyWithValue("stream", true))
			Expect(req.Body).To(HaveKeyWithValue("enable_thinking", false))

			messages := req.Body["messages"].([]any)
			Expect(messages).To(HaveLen(2))
			Expect(messages[0]).To(HaveKeyWithValue("role", "system"))
			Expect(messages[1]).To(HaveKeyWithValue("content", "Please solve this problem: 1+1"))
		})

		It("uses the thinking model and flag when thinking is on", func() {
			up.reply = streamChunks("data: [DONE]\n\n")
			c := newClient(up, solver.FamilyQwen, nil)

			res, err := c.Solve(ctx, solver.SolveRequest{Problem: "1+1", Thinking: true}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Model).To(Equal("qwen3-max-preview"))
			Expect(up.last().Body).To(HaveKeyWithValue("enable_thinking", true))
		})

		It("routes third-party families to the alternate endpoint", func() {
			up.reply = streamChunks("data: [DONE]\n\n")
			c := newClient(up, solver.FamilyGLM, nil)

			_, err := c.Solve(ctx, solver.SolveRequest{Problem: "1+1"}, nil)
			Expect(err).NotTo(HaveOccurred())

			req := up.last()
			Expect(req.Path).To(Equal("/dmx/chat/completions"))
			Expect(req.Header.Get("Authorization")).To(Equal("Bearer dmx-key"))
			Expect(req.Body).To(HaveKeyWithValue("thinking", HaveKeyWithValue("type", "disabled")))
			Expect(req.Body).NotTo(HaveKey("enable_thinking"))
		})

		It("streams from the generative-content endpoint", func() {
			up.reply = streamChunks(
				`data: {"candidates":[{"content":{"parts":[{"text":"第一步"}]}}]}`+"\n\n",
				`data: {"candidates":[{"content":{"parts":[{"text":"，完成"}]}}]}`+"\n\n",
			)
			c := newClient(up, solver.FamilyGemini, nil)

			res, err := c.Solve(ctx, solver.SolveRequest{Problem: "1+1"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Content).To(Equal("第一步，完成"))
			Expect(res.Reasoning).To(BeEmpty())

			req := up.last()
			Expect(req.Path).To(Equal("/v1beta/models/gemini-2.5-pro:streamGenerateContent"))
			Expect(req.Query["alt"]).To(Equal([]string{"sse"}))
			Expect(req.Query["key"]).To(Equal([]string{"g-key"}))
			Expect(req.Body).NotTo(HaveKey("systemInstruction"))
			Expect(req.Body).NotTo(HaveKey("enable_thinking"))
		})

		It("skips malformed frames and keeps streaming", func() {
			up.reply = streamChunks(
				`data: {"choices":[{"delta":{"content":"a"}}]}`+"\n",
				"data: {not json\n",
				`data: {"choices":[]}`+"\n",
				`data: {"choices":[{"delta":{"content":"b"}}]}`+"\n",
			)
			c := newClient(up, solver.FamilyQwen, nil)

			res, err := c.Solve(ctx, solver.SolveRequest{Problem: "p"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Content).To(Equal("ab"))
		})

		It("extracts the error message of a non-2xx response", func() {
			up.reply = jsonReply(http.StatusUnauthorized, `{"error":{"message":"Invalid API-key provided."}}`)
			c := newClient(up, solver.FamilyQwen, trans.hook)

			_, err := c.Solve(ctx, solver.SolveRequest{Problem: "p"}, nil)
			var terr *solver.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(err).To(MatchError("Invalid API-key provided."))
			Expect(trans.list()).To(Equal([]solver.State{solver.StateSending, solver.StateFailed}))
		})

		It("prefers a top-level message and falls back to the status", func() {
			c := newClient(up, solver.FamilyQwen, nil)

			up.reply = jsonReply(http.StatusBadRequest, `{"message":"bad input","error":{"message":"other"}}`)
			_, err := c.Solve(ctx, solver.SolveRequest{Problem: "p"}, nil)
			Expect(err).To(MatchError("bad input"))

			up.reply = jsonReply(http.StatusBadGateway, `<html>oops</html>`)
			_, err = c.Solve(ctx, solver.SolveRequest{Problem: "p"}, nil)
			Expect(err).To(MatchError("HTTP 502"))
		})

		It("fails on a 2xx response without a body", func() {
			up.reply = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}
			c := newClient(up, solver.FamilyQwen, nil)

			_, err := c.Solve(ctx, solver.SolveRequest{Problem: "p"}, nil)
			var terr *solver.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(solver.IsCancelled(err)).To(BeFalse())
		})

		It("fails before any request when the credential is missing", func() {
			c, err := solver.New(solver.Config{
				Endpoints: solver.Endpoints{DashScope: up.server.URL},
				Family:    solver.FamilyQwen,
				Keys:      keys{},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.Solve(ctx, solver.SolveRequest{Problem: "p"}, nil)
			var cerr *solver.ConfigurationError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Slot).To(Equal("dashscope"))
			Expect(up.count()).To(BeZero())
		})

		It("rejects an unknown family", func() {
			c := newClient(up, "llama", nil)
			_, err := c.Solve(ctx, solver.SolveRequest{Problem: "p"}, nil)
			var cerr *solver.ConfigurationError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(up.count()).To(BeZero())
		})

		It("records the raw stream", func() {
			raw := `data: {"choices":[{"delta":{"content":"a"}}]}` + "\n\ndata: [DONE]\n\n"
			up.reply = streamChunks(raw)

			var record bytes.Buffer
			c, err := solver.New(solver.Config{
				Endpoints: solver.Endpoints{DashScope: up.server.URL},
				Family:    solver.FamilyQwen,
				Keys:      allKeys,
				Record:    &record,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.Solve(ctx, solver.SolveRequest{Problem: "p"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(record.String()).To(Equal(raw))
		})
	})

	Describe("cancellation", func() {
		It("makes no request when cancelled before sending", func() {
			c := newClient(up, solver.FamilyQwen, trans.hook)
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			called := false
			_, err := c.Solve(cctx, solver.SolveRequest{Problem: "p"}, func(llm.StreamState, bool) { called = true })
			Expect(err).To(MatchError(solver.ErrCancelled))
			Expect(solver.IsCancelled(err)).To(BeTrue())
			Expect(called).To(BeFalse())
			Expect(up.count()).To(BeZero())
			Expect(trans.list()).To(Equal([]solver.State{solver.StateAborted}))
		})

		It("reports cancellation ahead of a missing credential", func() {
			c, err := solver.New(solver.Config{
				Endpoints:   solver.Endpoints{DashScope: up.server.URL},
				Family:      solver.FamilyQwen,
				VisionModel: "qwen3-vl-plus",
				Keys:        keys{},
			})
			Expect(err).NotTo(HaveOccurred())
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err = c.Solve(cctx, solver.SolveRequest{Problem: "p"}, nil)
			Expect(err).To(MatchError(solver.ErrCancelled))

			_, err = c.Extract(cctx, []byte{0x89, 'P', 'N', 'G'})
			Expect(err).To(MatchError(solver.ErrCancelled))
			Expect(up.count()).To(BeZero())
		})

		It("stops mid-stream and discards buffered frames", func() {
			up.reply = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = w.Write([]byte(
					`data: {"choices":[{"delta":{"content":"one"}}]}` + "\n\n" +
						`data: {"choices":[{"delta":{"content":"two"}}]}` + "\n\n",
				))
				w.(http.Flusher).Flush()
				<-r.Context().Done()
			}
			c := newClient(up, solver.FamilyQwen, trans.hook)
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()

			var seen []string
			_, err := c.Solve(cctx, solver.SolveRequest{Problem: "p"}, func(s llm.StreamState, _ bool) {
				seen = append(seen, s.Content)
				cancel()
			})
			Expect(err).To(MatchError(solver.ErrCancelled))
			Expect(seen).To(Equal([]string{"one"}))
			Expect(trans.list()).To(Equal([]solver.State{
				solver.StateSending, solver.StateStreaming, solver.StateAborted,
			}))
		})

		It("unblocks a pending read", func() {
			started := make(chan struct{})
			up.reply = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				w.(http.Flusher).Flush()
				close(started)
				<-r.Context().Done()
			}
			c := newClient(up, solver.FamilyQwen, nil)
			cctx, cancel := context.WithCancel(ctx)

			go func() {
				<-started
				cancel()
			}()

			_, err := c.Solve(cctx, solver.SolveRequest{Problem: "p"}, nil)
			Expect(err).To(MatchError(solver.ErrCancelled))
		})
	})

	Describe("Chat", func() {
		req := solver.ChatRequest{
			Problem:  "x^2=4",
			Solution: "x=±2",
			History: []llm.ChatMessage{
				{Role: "user", Content: "why two?"},
				{Role: "assistant", Content: "square roots"},
			},
			Query: "negative too?",
		}

		It("prepends the context for delta-chat models", func() {
			up.reply = streamChunks(`data: {"choices":[{"delta":{"content":"是"}}]}` + "\n\n")
			c := newClient(up, solver.FamilyQwen, nil)

			res, err := c.Chat(ctx, req, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Content).To(Equal("是"))

			messages := up.last().Body["messages"].([]any)
			Expect(messages).To(HaveLen(6))
			Expect(messages[1]).To(HaveKeyWithValue("content", "Problem: x^2=4"))
			Expect(messages[2]).To(HaveKeyWithValue("role", "assistant"))
			Expect(messages[4]).To(HaveKeyWithValue("role", "assistant"))
			Expect(messages[5]).To(HaveKeyWithValue("content", "negative too?"))
		})

		It("maps assistant turns to the model role for Gemini", func() {
			up.reply = streamChunks("data: [DONE]\n\n")
			c := newClient(up, solver.FamilyGemini, nil)

			_, err := c.Chat(ctx, req, nil)
			Expect(err).NotTo(HaveOccurred())

			contents := up.last().Body["contents"].([]any)
			Expect(contents).To(HaveLen(5))
			roles := make([]string, 0, len(contents))
			for _, c := range contents {
				roles = append(roles, c.(map[string]any)["role"].(string))
			}
			Expect(roles).To(Equal([]string{"user", "model", "user", "model", "user"}))
		})
	})

	Describe("Verify", func() {
		It("asks the paired model and parses the verdict", func() {
			up.reply = streamChunks(
				`data: {"choices":[{"delta":{"reasoning_content":"check"}}]}`+"\n\n",
				`data: {"choices":[{"delta":{"content":"步骤正确。\nVERDICT: CORRECT\nSUMMARY: 解答无误"}}]}`+"\n\n",
			)
			c := newClient(up, solver.FamilyGemini, nil)

			v, err := c.Verify(ctx, solver.VerifyRequest{Problem: "p", Solution: "s", SolverModel: "gemini-2.5-pro"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.ModelUsed).To(Equal("qwen3-max"))
			Expect(v.Status).To(Equal(llm.VerificationDone))
			Expect(v.IsCorrect).NotTo(BeNil())
			Expect(*v.IsCorrect).To(BeTrue())
			Expect(v.Summary).To(Equal("解答无误"))
			Expect(v.Reasoning).To(Equal("check"))
			Expect(up.last().Body).To(HaveKeyWithValue("enable_thinking", true))
		})

		It("settles as an error verification on failure", func() {
			up.reply = jsonReply(http.StatusInternalServerError, `{"message":"overloaded"}`)
			c := newClient(up, solver.FamilyQwen, nil)

			v, err := c.Verify(ctx, solver.VerifyRequest{SolverModel: "qwen3-max"}, nil)
			Expect(err).To(HaveOccurred())
			Expect(v.Status).To(Equal(llm.VerificationError))
			Expect(v.Content).To(Equal("overloaded"))
			Expect(v.ModelUsed).To(Equal("gemini-2.5-pro"))
		})
	})

	Describe("Extract", func() {
		png := []byte{0x89, 'P', 'N', 'G'}

		visionClient := func(model string) *solver.Client {
			c, err := solver.New(solver.Config{
				Endpoints: solver.Endpoints{
					DashScope: up.server.URL + "/dashscope",
					Alternate: up.server.URL + "/dmx",
					Gemini:    up.server.URL + "/v1beta",
				},
				VisionModel: model,
				Keys:        allKeys,
			})
			Expect(err).NotTo(HaveOccurred())
			return c
		}

		It("transcribes with an image-first request and wraps bare LaTeX", func() {
			up.reply = jsonReply(http.StatusOK, `{"choices":[{"message":{"content":"\\int_0^1 x dx"}}]}`)

			text, err := visionClient("qwen3-vl-plus").Extract(ctx, png)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(`$$\int_0^1 x dx$$`))

			req := up.last()
			Expect(req.Body).NotTo(HaveKey("stream"))
			parts := req.Body["messages"].([]any)[0].(map[string]any)["content"].([]any)
			Expect(parts[0]).To(HaveKeyWithValue("type", "image_url"))
			Expect(parts[1]).To(HaveKeyWithValue("type", "text"))
		})

		It("unwraps OCR results and strips grounding tags", func() {
			up.reply = jsonReply(http.StatusOK,
				`{"choices":[{"message":{"content":"{\"text_result\":\"<|ref|>eq<|/ref|><|det|>[[1,2]]<|/det|>x+1=2\"}"}}]}`)

			text, err := visionClient("DeepSeek-OCR-Free").Extract(ctx, png)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("x+1=2"))

			req := up.last()
			Expect(req.Path).To(Equal("/dmx"))
			parts := req.Body["messages"].([]any)[0].(map[string]any)["content"].([]any)
			Expect(parts[0]).To(HaveKeyWithValue("type", "text"))
		})

		It("uses generateContent for Gemini vision", func() {
			up.reply = jsonReply(http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  a+b  "}]}}]}`)

			text, err := visionClient("gemini-2.5-pro").Extract(ctx, png)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("a+b"))

			req := up.last()
			Expect(req.Path).To(Equal("/v1beta/models/gemini-2.5-pro:generateContent"))
			Expect(req.Query).NotTo(HaveKey("alt"))
		})

		It("falls back to a fixed string on empty output", func() {
			up.reply = jsonReply(http.StatusOK, `{"choices":[]}`)
			text, err := visionClient("qwen3-vl-plus").Extract(ctx, png)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(solver.RecognitionFailed))
		})

		It("reports vision failures", func() {
			up.reply = jsonReply(http.StatusForbidden, `{"error":{"message":"quota"}}`)
			_, err := visionClient("qwen3-vl-plus").Extract(ctx, png)
			Expect(err).To(MatchError(ContainSubstring("quota")))
			Expect(strings.Contains(err.Error(), "HTTP")).To(BeFalse())
		})
	})
})
