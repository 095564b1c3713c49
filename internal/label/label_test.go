package label_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"openswe.dev/manager/internal/label"
)

var _ = Describe("Label policy", func() {
	It("recognizes all four trigger labels", func() {
		for _, name := range label.All() {
			Expect(label.IsTrigger(name)).To(BeTrue(), "expected %q to trigger", name)
		}
	})

	It("treats unrecognized labels as inert", func() {
		Expect(label.IsTrigger("bug")).To(BeFalse())
		Expect(label.IsTrigger("open-swe-extra")).To(BeFalse())
		Expect(label.IsTrigger("")).To(BeFalse())
		Expect(label.IsAutoAccept("bug")).To(BeFalse())
		Expect(label.IsMax("bug")).To(BeFalse())
	})

	DescribeTable("classification dimensions",
		func(name string, autoAccept, max bool) {
			Expect(label.IsAutoAccept(name)).To(Equal(autoAccept))
			Expect(label.IsMax(name)).To(Equal(max))
		},
		Entry("base label", "open-swe", false, false),
		Entry("auto-accept", "open-swe-auto", true, false),
		Entry("max model", "open-swe-max", false, true),
		Entry("max auto-accept", "open-swe-max-auto", true, true),
	)
})
