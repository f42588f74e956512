package label

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// maxNameLines caps how far down the label the product name is searched for.
	maxNameLines = 15
	allCapsBonus = 50
)

var leadingNumberRE = regexp.MustCompile(`^\d+\s+`)

type candidate struct {
	index int
	line  string
	score int
}

// nameWindow returns how many leading lines may hold the product name: the
// lines above the retail heading, else above the wholesale heading, at most maxNameLines.
func nameWindow(n, retailIdx, wholesaleIdx int) int {
	limit := n
	switch {
	case retailIdx >= 0:
		limit = retailIdx
	case wholesaleIdx >= 0:
		limit = wholesaleIdx
	}
	return min(limit, maxNameLines)
}

// scoreLines scores every eligible line. Skipped lines are left out.
func (e *Extractor) scoreLines(lines []string) []candidate {
	out := make([]candidate, 0, len(lines))
	for i, line := range lines {
		if isTooShort(line) {
			continue
		}
		folded := fold(line)
		if e.skipped(folded) {
			continue
		}
		score := e.score(line, folded)
		slog.Debug("Label name candidate", "line", i, "text", line, "score", score)
		out = append(out, candidate{index: i, line: line, score: score})
	}
	return out
}

func (e *Extractor) skipped(folded string) bool {
	for _, r := range e.skips {
		if r.match(folded) {
			return true
		}
	}
	return false
}

func (e *Extractor) score(line, folded string) int {
	score := utf8.RuneCountInString(line)
	if isAllCaps(line) {
		score += allCapsBonus
	}
	for _, r := range e.scores {
		if r.match(folded) {
			score += r.Weight
		}
	}
	return score
}

// bestCandidate folds the candidates into the highest scoring one. A candidate
// must beat the running best, which starts at zero, so ties keep the earliest
// line and non-positive scores never win.
func bestCandidate(cands []candidate) (candidate, bool) {
	best := candidate{index: -1}
	for _, c := range cands {
		if c.score > best.score {
			best = c
		}
	}
	return best, best.index >= 0
}

// formatName drops a leading item number and title-cases each word.
func formatName(line string) string {
	name := strings.TrimSpace(leadingNumberRE.ReplaceAllString(line, ""))
	words := strings.Split(name, " ")
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}
