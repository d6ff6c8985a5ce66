package sqlite_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathpad/pkg/storage"
	"github.com/papercomputeco/mathpad/pkg/storage/sqlite"
	"github.com/papercomputeco/mathpad/pkg/storage/storagetest"
)

var _ storage.Driver = (*sqlite.Driver)(nil)

var _ = Describe("Driver", func() {
	storagetest.DriverBehavior(func() storage.Driver {
		d, err := sqlite.NewDriver(context.Background(), ":memory:", storagetest.MaxEntries)
		Expect(err).NotTo(HaveOccurred())
		return d
	})

	It("persists entries across reopen", func() {
		ctx := context.Background()
		path := filepath.Join(GinkgoT().TempDir(), "history.db")

		d, err := sqlite.NewDriver(ctx, path, 0)
		Expect(err).NotTo(HaveOccurred())
		e := &storage.Entry{Problem: "\\int_0^1 x\\,dx", Solution: "1/2"}
		Expect(d.Add(ctx, e)).To(Succeed())
		Expect(d.Close()).To(Succeed())

		d, err = sqlite.NewDriver(ctx, path, 0)
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		got, err := d.Latest(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(e.ID))
		Expect(got.Problem).To(Equal(e.Problem))
		Expect(got.Chat).To(BeEmpty())
	})
})
