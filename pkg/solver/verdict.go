package solver

import (
	"strings"
)

// ParseVerdict reads the VERDICT and SUMMARY lines a reviewer ends its reply
// with. correct is nil when no verdict line was found. Markdown emphasis
// around the labels is tolerated.
func ParseVerdict(content string) (correct *bool, summary string) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "*", ""))

		if value, ok := cutLabel(line, "VERDICT"); ok {
			switch strings.ToUpper(value) {
			case "CORRECT":
				v := true
				correct = &v
			case "INCORRECT":
				v := false
				correct = &v
			}
			continue
		}
		if value, ok := cutLabel(line, "SUMMARY"); ok {
			summary = value
		}
	}
	return correct, summary
}

// cutLabel matches "LABEL: value" case-insensitively, with an ASCII or
// full-width colon.
func cutLabel(line, label string) (string, bool) {
	if len(line) < len(label) || !strings.EqualFold(line[:len(label)], label) {
		return "", false
	}
	rest := strings.TrimSpace(line[len(label):])
	for _, colon := range []string{":", "："} {
		if after, ok := strings.CutPrefix(rest, colon); ok {
			return strings.TrimSpace(after), true
		}
	}
	return "", false
}
