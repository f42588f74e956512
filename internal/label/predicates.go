package label

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	retailRE        = regexp.MustCompile(`(?i)` + retailPattern)
	wholesaleRE     = regexp.MustCompile(`(?i)` + wholesalePattern)
	totalRE         = regexp.MustCompile(`(?i)total`)
	wholesaleHintRE = regexp.MustCompile(`(?i)a\s+partir|levena|leve\s+\d+|atc|atac`)
)

// minNameLength is the shortest line that may be a product name.
const minNameLength = 5

// fold lower-cases s and strips diacritics so "FEIJÃO" matches "feijao".
// A new transformer is built per call; transformers are not safe for concurrent use.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Key normalizes a product name for lookups, so "Feijão  Carioca" and
// "FEIJAO CARIOCA" share a price history.
func Key(name string) string {
	return strings.Join(strings.Fields(fold(name)), " ")
}

// splitLines breaks recognized text into trimmed, non-empty lines.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// isRetailKeyword reports a "varejo" heading, tolerating varajo/varelo misreads.
func isRetailKeyword(line string) bool {
	return retailRE.MatchString(line)
}

func isWholesaleKeyword(line string) bool {
	return wholesaleRE.MatchString(line)
}

// isTotalLine reports a weighing-scale style "TOTAL R$ x,xx" line.
func isTotalLine(line string) bool {
	return totalRE.MatchString(line)
}

// isWholesaleHint reports phrases such as "a partir de", "leve 3" or "atac".
func isWholesaleHint(line string) bool {
	return wholesaleHintRE.MatchString(line)
}

// isAllCaps reports whether line has at least one letter and no lower-case ones.
func isAllCaps(line string) bool {
	return line == strings.ToUpper(line) && strings.IndexFunc(line, unicode.IsLetter) >= 0
}

// isTooShort reports lines too short to be a product description.
func isTooShort(line string) bool {
	return len([]rune(line)) < minNameLength
}

// locateKeywords returns the index of the first retail and first wholesale
// heading, or -1 when absent.
func locateKeywords(lines []string) (retailIdx, wholesaleIdx int) {
	retailIdx, wholesaleIdx = -1, -1
	for i, l := range lines {
		if retailIdx == -1 && isRetailKeyword(l) {
			retailIdx = i
		}
		if wholesaleIdx == -1 && isWholesaleKeyword(l) {
			wholesaleIdx = i
		}
	}
	return retailIdx, wholesaleIdx
}
