package label

import (
	"regexp"
	"strconv"
)

// priceRE matches "R$ 12,49", "12.49", "$9,99": an optional currency marker,
// digits, a comma or period and exactly two cents digits.
var priceRE = regexp.MustCompile(`(?i)R?\$?\s*(\d+)[,.](\d{2})`)

// quantityRE matches "a partir de 3", "leve 6", "c/12", "cx 24" or "6 un".
var quantityRE = regexp.MustCompile(`(?i)(?:partir\s+de|leve|c/|cx|fd)\s*(\d+)|(\d+)\s*(?:un|cx|fd)`)

const (
	// minWholesalePrice drops OCR fragments such as "0,01" near the wholesale heading.
	minWholesalePrice = 0.05
	maxFallbackPrice  = 10000
	minQuantity       = 1
	maxQuantity       = 100
)

// parsePrice turns the integer and cents groups of a price match into a decimal.
func parsePrice(units, cents string) (float64, bool) {
	p, err := strconv.ParseFloat(units+"."+cents, 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

// firstPrice returns the first price on line.
func firstPrice(line string) (float64, bool) {
	m := priceRE.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return parsePrice(m[1], m[2])
}

// allPrices returns every price on line in order of appearance.
func allPrices(line string) []float64 {
	var out []float64
	for _, m := range priceRE.FindAllStringSubmatch(line, -1) {
		if p, ok := parsePrice(m[1], m[2]); ok {
			out = append(out, p)
		}
	}
	return out
}

// ParsePrice parses a user or OCR supplied price such as "R$ 12,49".
func ParsePrice(s string) (float64, bool) {
	return firstPrice(s)
}

// quantities returns the pack quantities mentioned on line. A number that is
// the cents part of a price ("9,99 UN") is not a quantity.
func quantities(line string) []int {
	var out []int
	for _, m := range quantityRE.FindAllStringSubmatchIndex(line, -1) {
		var start, end int
		switch {
		case m[2] >= 0:
			start, end = m[2], m[3]
		case m[4] >= 0:
			start, end = m[4], m[5]
			if start > 0 && isPriceByte(line[start-1]) {
				continue
			}
		default:
			continue
		}
		n, err := strconv.Atoi(line[start:end])
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func isPriceByte(b byte) bool {
	return b == ',' || b == '.' || (b >= '0' && b <= '9')
}
