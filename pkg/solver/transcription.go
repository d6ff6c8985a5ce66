package solver

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RecognitionFailed stands in for an empty transcription so later stages
// always get non-empty input.
const RecognitionFailed = "Recognition failed"

var (
	refTag   = regexp.MustCompile(`<\|ref\|>.*?<\|/ref\|>`)
	detTag   = regexp.MustCompile(`<\|det\|>.*?<\|/det\|>`)
	fenceTag = regexp.MustCompile("(?m)^```[a-zA-Z]*[ \t]*$")
)

// CleanTranscription turns raw vision output into a problem statement.
// Code fences and OCR grounding tags are removed, and text that contains a
// backslash but does not start with $ is wrapped in $$ … $$.
func CleanTranscription(raw string) string {
	text := fenceTag.ReplaceAllString(raw, "")
	text = refTag.ReplaceAllString(text, "")
	text = detTag.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text == "" {
		return RecognitionFailed
	}
	if strings.Contains(text, `\`) && !strings.HasPrefix(text, "$") {
		text = "$$" + text + "$$"
	}
	return text
}

// CombineProblem appends extra user text to a transcription.
func CombineProblem(extracted, extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return extracted
	}
	return extracted + "\n\n" + extra
}

// isOCRModel reports whether model is the OCR model whose replies may be a
// JSON object with a text_result field.
func isOCRModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "deepseek-ocr")
}

// unwrapOCR returns text_result when content is such an object, otherwise
// content unchanged.
func unwrapOCR(content string) string {
	var wrapped struct {
		TextResult *string `json:"text_result"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil || wrapped.TextResult == nil {
		return content
	}
	return *wrapped.TextResult
}
