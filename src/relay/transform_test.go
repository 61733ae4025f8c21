package relay_test

import (
	. "github.com/michaelfecher/cross-account-access/src/relay"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"time"
)

var _ = Describe("Transform", func() {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	It("Prepends the header to the original bytes", func() {
		out := Transform([]byte("a,b\n1,2\n"), "dev", "input/data.csv", at)
		Expect(string(out)).To(Equal("# Processed by dev at 2024-03-01T12:00:00Z\n# Source: input/data.csv\n\na,b\n1,2\n"))
	})

	It("Still writes the header for an empty body", func() {
		out := Transform(nil, "dev", "input/empty", at)
		Expect(string(out)).To(Equal(Header("dev", "input/empty", at)))
	})

	It("Renders the timestamp in UTC", func() {
		local := at.In(time.FixedZone("CET", 3600))
		Expect(Header("dev", "k", local)).To(ContainSubstring("at 2024-03-01T12:00:00Z"))
	})

	It("Leaves the input untouched", func() {
		body := []byte("payload")
		Transform(body, "dev", "k", at)
		Expect(body).To(Equal([]byte("payload")))
	})
})
