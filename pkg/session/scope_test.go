package session_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathpad/pkg/session"
)

var _ = Describe("Scope", func() {
	var (
		scope *session.Scope
		ctx   context.Context
	)

	BeforeEach(func() {
		scope = &session.Scope{}
		ctx = context.Background()
	})

	It("cancels the previous operation on Begin", func() {
		first, releaseFirst := scope.Begin(ctx)
		second, releaseSecond := scope.Begin(ctx)
		defer releaseSecond()

		Expect(first.Err()).To(MatchError(context.Canceled))
		Expect(second.Err()).NotTo(HaveOccurred())

		// A stale release must not forget the newer operation.
		releaseFirst()
		Expect(scope.Active()).To(BeTrue())
		Expect(second.Err()).NotTo(HaveOccurred())
	})

	It("cancels the current operation", func() {
		op, release := scope.Begin(ctx)
		defer release()

		Expect(scope.Cancel()).To(BeTrue())
		Expect(op.Err()).To(MatchError(context.Canceled))
		Expect(scope.Active()).To(BeFalse())
		Expect(scope.Cancel()).To(BeFalse())
	})

	It("forgets an operation once released", func() {
		op, release := scope.Begin(ctx)
		release()
		Expect(scope.Active()).To(BeFalse())
		Expect(op.Err()).To(HaveOccurred())
	})

	It("follows the parent context", func() {
		parent, cancel := context.WithCancel(ctx)
		op, release := scope.Begin(parent)
		defer release()

		cancel()
		Expect(op.Err()).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Session", func() {
	It("keeps primary and chat independent", func() {
		var s session.Session
		ctx := context.Background()

		solve, releaseSolve := s.Primary.Begin(ctx)
		defer releaseSolve()
		chat, releaseChat := s.Chat.Begin(ctx)
		defer releaseChat()

		verify, releaseVerify := s.Primary.Begin(ctx)
		defer releaseVerify()

		Expect(solve.Err()).To(HaveOccurred())
		Expect(chat.Err()).NotTo(HaveOccurred())
		Expect(verify.Err()).NotTo(HaveOccurred())

		s.Scope(session.Chat).Cancel()
		Expect(chat.Err()).To(HaveOccurred())
		Expect(verify.Err()).NotTo(HaveOccurred())
	})

	It("resolves scopes by kind", func() {
		var s session.Session
		Expect(s.Scope(session.Primary)).To(BeIdenticalTo(&s.Primary))
		Expect(s.Scope(session.Chat)).To(BeIdenticalTo(&s.Chat))
		Expect(s.Scope("other")).To(BeNil())
	})

	It("cancels everything", func() {
		var s session.Session
		a, ra := s.Primary.Begin(context.Background())
		defer ra()
		b, rb := s.Chat.Begin(context.Background())
		defer rb()

		s.CancelAll()
		Expect(a.Err()).To(HaveOccurred())
		Expect(b.Err()).To(HaveOccurred())
	})
})
