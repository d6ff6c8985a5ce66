package solver_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathpad/pkg/solver"
)

var _ = Describe("Models", func() {
	DescribeTable("SolverModel",
		func(family string, thinking bool, want string) {
			got, err := solver.SolverModel(family, thinking)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("qwen fast", solver.FamilyQwen, false, "qwen3-max"),
		Entry("qwen thinking", solver.FamilyQwen, true, "qwen3-max-preview"),
		Entry("gemini", solver.FamilyGemini, true, "gemini-2.5-pro"),
		Entry("glm", solver.FamilyGLM, false, "glm-4.5-flash"),
		Entry("qwen3 8b", solver.FamilyQwen38B, true, "qwen3-8b"),
	)

	It("rejects unknown families", func() {
		_, err := solver.SolverModel("gpt", false)
		var cerr *solver.ConfigurationError
		Expect(errors.As(err, &cerr)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("gpt"))
	})

	DescribeTable("VerifierModel",
		func(solverModel, want string) {
			Expect(solver.VerifierModel(solverModel)).To(Equal(want))
		},
		Entry("primary is checked by secondary", "qwen3-max", "gemini-2.5-pro"),
		Entry("secondary is checked by primary", "gemini-2.5-pro", "qwen3-max"),
		Entry("others are checked by primary", "glm-4.5-flash", "qwen3-max"),
		Entry("thinking variant is not the primary", "qwen3-max-preview", "qwen3-max"),
	)

	It("lists families", func() {
		Expect(solver.Families()).To(ConsistOf("gemini", "glm", "qwen", "qwen3_8b"))
	})
})
