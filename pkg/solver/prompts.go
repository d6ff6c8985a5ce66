package solver

import (
	"fmt"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/llm/provider"
)

const styleRequirement = "简洁回答，风格为考研标准答案。"

const (
	visionPrompt    = "You are a math assistant. Transcribe the handwritten mathematics in this image into LaTeX/Text. Output ONLY the math expression/problem text. Do not solve it."
	ocrVisionPrompt = "You are a math assistant. Transcribe the handwritten mathematics in this image into LaTeX/Text. Output ONLY the math expression/problem text."

	solveSystemPrompt = "You are a helpful Math Tutor. Solve the user's problem step by step. Use LaTeX for math formulas ($...$, $$...$$). Reply in Chinese. " + styleRequirement
	chatSystemPrompt  = "You are a helpful Math Tutor. Context provided below. Reply in Chinese. Use LaTeX. " + styleRequirement

	verifySystemPrompt = "You are a rigorous math reviewer. Check the given solution step by step for mathematical errors. Reply in Chinese. Use LaTeX. " +
		"End your reply with exactly two lines:\n" +
		"VERDICT: CORRECT or VERDICT: INCORRECT\n" +
		"SUMMARY: <one sentence>"
)

// visionMessages builds the one-shot transcription request. Gemini and the
// OCR model take the instruction before the image.
func visionMessages(route provider.Route, model string, png []byte) []llm.Message {
	msg := llm.NewImageMessage(png, visionPrompt)
	if route.Provider == provider.Gemini || isOCRModel(model) {
		prompt := visionPrompt
		if isOCRModel(model) {
			prompt = ocrVisionPrompt
		}
		msg.Content = []llm.ContentBlock{
			{Type: "text", Text: prompt},
			msg.Content[0],
		}
	}
	return []llm.Message{msg}
}

func solveMessages(route provider.Route, problem string) []llm.Message {
	if route.Provider == provider.Gemini {
		return []llm.Message{
			llm.NewTextMessage(llm.RoleUser, fmt.Sprintf(
				"Role: Math Tutor. Solve this: %s. Use LaTeX ($...$). Language: Chinese. %s", problem, styleRequirement)),
		}
	}
	return []llm.Message{
		llm.NewTextMessage(llm.RoleSystem, solveSystemPrompt),
		llm.NewTextMessage(llm.RoleUser, "Please solve this problem: "+problem),
	}
}

func chatMessages(route provider.Route, req ChatRequest) []llm.Message {
	var messages []llm.Message
	if route.Provider == provider.Gemini {
		messages = []llm.Message{
			llm.NewTextMessage(llm.RoleUser, fmt.Sprintf("Context Problem: %s. Requirement: %s", req.Problem, styleRequirement)),
			llm.NewTextMessage(llm.RoleAssistant, "Initial Solution: "+req.Solution),
		}
	} else {
		messages = []llm.Message{
			llm.NewTextMessage(llm.RoleSystem, chatSystemPrompt),
			llm.NewTextMessage(llm.RoleUser, "Problem: "+req.Problem),
			llm.NewTextMessage(llm.RoleAssistant, req.Solution),
		}
	}

	for _, turn := range req.History {
		role := llm.RoleUser
		if turn.Role == llm.RoleAssistant || turn.Role == "model" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.NewTextMessage(role, turn.Content))
	}
	return append(messages, llm.NewTextMessage(llm.RoleUser, req.Query))
}

func verifyMessages(req VerifyRequest) []llm.Message {
	return []llm.Message{
		llm.NewTextMessage(llm.RoleSystem, verifySystemPrompt),
		llm.NewTextMessage(llm.RoleUser, fmt.Sprintf("Problem:\n%s\n\nSolution:\n%s", req.Problem, req.Solution)),
	}
}
