package label

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParsePrice", func() {
	DescribeTable("parsing",
		func(in string, want float64, ok bool) {
			got, found := ParsePrice(in)
			Expect(found).To(Equal(ok))
			Expect(got).To(Equal(want))
		},
		Entry("comma decimal", "R$ 12,49", 12.49, true),
		Entry("period decimal", "12.49", 12.49, true),
		Entry("bare currency", "$9,99", 9.99, true),
		Entry("no space", "R$5,43", 5.43, true),
		Entry("inside text", "Atacado R$ 9,99 UN", 9.99, true),
		Entry("one cents digit", "R$ 9,9", 0.0, false),
		Entry("no decimals", "R$ 10", 0.0, false),
		Entry("empty", "", 0.0, false),
	)
})

var _ = Describe("allPrices", func() {
	It("should return every price in order", func() {
		Expect(allPrices("R$ 9,99 UN | R$ 59,94")).To(Equal([]float64{9.99, 59.94}))
	})

	It("should return nothing for a line without prices", func() {
		Expect(allPrices("ARROZ TIPO 1")).To(BeEmpty())
	})
})

var _ = Describe("quantities", func() {
	DescribeTable("reading pack sizes",
		func(line string, want []int) {
			if want == nil {
				Expect(quantities(line)).To(BeEmpty())
				return
			}
			Expect(quantities(line)).To(Equal(want))
		},
		Entry("a partir de", "A partir de 3 un", []int{3}),
		Entry("leve", "Leve 6", []int{6}),
		Entry("c/", "CX C/12", []int{12}),
		Entry("cx", "cx 24", []int{24}),
		Entry("trailing unit", "6 un", []int{6}),
		Entry("cents before un", "R$ 9,99 UN", nil),
		Entry("cents before un, period", "R$ 9.99 un", nil),
		Entry("no quantity", "ARROZ TIPO 1", nil),
	)
})
