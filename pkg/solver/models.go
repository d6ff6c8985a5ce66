package solver

import (
	"fmt"
	"sort"
)

// Model families selectable with model.family.
const (
	FamilyQwen    = "qwen"
	FamilyGemini  = "gemini"
	FamilyGLM     = "glm"
	FamilyQwen38B = "qwen3_8b"
)

type familyModels struct {
	fast     string
	thinking string
}

var families = map[string]familyModels{
	FamilyQwen:    {fast: "qwen3-max", thinking: "qwen3-max-preview"},
	FamilyGemini:  {fast: "gemini-2.5-pro", thinking: "gemini-2.5-pro"},
	FamilyGLM:     {fast: "glm-4.5-flash", thinking: "glm-4.5-flash"},
	FamilyQwen38B: {fast: "qwen3-8b", thinking: "qwen3-8b"},
}

// Families returns the known family names, sorted.
func Families() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SolverModel returns the model a family solves with.
func SolverModel(family string, thinking bool) (string, error) {
	m, ok := families[family]
	if !ok {
		return "", &ConfigurationError{
			Reason: fmt.Sprintf("unknown model family %q (supported: %v)", family, Families()),
		}
	}
	if thinking {
		return m.thinking, nil
	}
	return m.fast, nil
}

const (
	verifierPrimary   = "qwen3-max"
	verifierSecondary = "gemini-2.5-pro"
)

// VerifierModel returns the model that reviews a solution produced by
// solverModel. The two primary models check each other; every other model
// is checked by verifierPrimary.
func VerifierModel(solverModel string) string {
	if solverModel == verifierPrimary {
		return verifierSecondary
	}
	return verifierPrimary
}
