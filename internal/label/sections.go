package label

import "slices"

const (
	retailWindow    = 3
	wholesaleWindow = 4
)

// retailPrice prefers a scale ticket "TOTAL" line anywhere on the label, then
// the first price within a few lines of the retail heading.
func retailPrice(lines []string, retailIdx int) (float64, bool) {
	for _, l := range lines {
		if !isTotalLine(l) {
			continue
		}
		if p, ok := firstPrice(l); ok && p > 0 {
			return p, true
		}
	}

	if retailIdx < 0 {
		return 0, false
	}
	for _, l := range lines[retailIdx:min(retailIdx+retailWindow, len(lines))] {
		if p, ok := firstPrice(l); ok {
			return p, true
		}
	}
	return 0, false
}

// wholesalePrice returns the lowest price printed under the wholesale heading.
// That section usually shows the unit price and the larger pack total side by
// side; the unit price is the smaller one.
func wholesalePrice(lines []string, wholesaleIdx int) (float64, bool) {
	if wholesaleIdx >= 0 {
		var cands []float64
		for _, l := range lines[wholesaleIdx:min(wholesaleIdx+wholesaleWindow, len(lines))] {
			for _, p := range allPrices(l) {
				if p > minWholesalePrice {
					cands = append(cands, p)
				}
			}
		}
		if len(cands) > 0 {
			return slices.Min(cands), true
		}
	}

	for _, l := range lines {
		if !isWholesaleHint(l) {
			continue
		}
		if p, ok := firstPrice(l); ok {
			return p, true
		}
	}
	return 0, false
}

// wholesaleQuantity returns the first plausible minimum pack size on the label.
func wholesaleQuantity(lines []string) (int, bool) {
	for _, l := range lines {
		for _, q := range quantities(l) {
			if q > minQuantity && q < maxQuantity {
				return q, true
			}
		}
	}
	return 0, false
}

// unheadedPrices lists every price on the label in reading order.
func unheadedPrices(lines []string) []float64 {
	var out []float64
	for _, l := range lines {
		for _, p := range allPrices(l) {
			if p > 0 && p < maxFallbackPrice {
				out = append(out, p)
			}
		}
	}
	return out
}
