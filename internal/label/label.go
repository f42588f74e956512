// Package label reconstructs product name, retail price, wholesale price and
// wholesale quantity from the noisy text recognized on Brazilian supermarket
// price labels.
package label

import (
	"fmt"
	"log/slog"
	"regexp"
)

// Result is the structured data read from a label. Every field is optional;
// nil means the label did not show it clearly enough.
type Result struct {
	ProductName  *string  `json:"product_name"`
	VarejoPrice  *float64 `json:"varejo_price"`
	AtacadoPrice *float64 `json:"atacado_price"`
	AtacadoQty   *int     `json:"atacado_qty"`
}

// Empty reports whether nothing could be read from the label.
func (r Result) Empty() bool {
	return r.ProductName == nil && r.VarejoPrice == nil && r.AtacadoPrice == nil && r.AtacadoQty == nil
}

type compiledRule struct {
	Rule
	res []*regexp.Regexp
}

func (c compiledRule) match(folded string) bool {
	for _, re := range c.res {
		if re.MatchString(folded) {
			return true
		}
	}
	return false
}

// Extractor reads labels using a vocabulary table. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	skips  []compiledRule
	scores []compiledRule
}

// New compiles a vocabulary table into an Extractor.
func New(t Table) (*Extractor, error) {
	e := &Extractor{}
	for _, r := range t.Rules {
		c := compiledRule{Rule: r}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("compiling %s pattern %q: %w", r.Category, p, err)
			}
			c.res = append(c.res, re)
		}
		if r.Skip {
			e.skips = append(e.skips, c)
		} else {
			e.scores = append(e.scores, c)
		}
	}
	return e, nil
}

// MustNew is like New but panics on an invalid table.
func MustNew(t Table) *Extractor {
	e, err := New(t)
	if err != nil {
		panic(err)
	}
	return e
}

var defaultExtractor = MustNew(DefaultTable())

// Extract reads rawText with the built-in vocabulary.
func Extract(rawText string) Result {
	return defaultExtractor.Extract(rawText)
}

// Matches reports whether line falls in the given vocabulary category.
func (e *Extractor) Matches(category, line string) bool {
	folded := fold(line)
	for _, group := range [][]compiledRule{e.skips, e.scores} {
		for _, r := range group {
			if r.Category == category && r.match(folded) {
				return true
			}
		}
	}
	return false
}

// Extract reads rawText. It never fails: unreadable input gives an empty Result.
func (e *Extractor) Extract(rawText string) Result {
	var res Result

	lines := splitLines(rawText)
	if len(lines) == 0 {
		return res
	}

	retailIdx, wholesaleIdx := locateKeywords(lines)

	best, found := bestCandidate(e.scoreLines(lines[:nameWindow(len(lines), retailIdx, wholesaleIdx)]))
	if found {
		name := formatName(best.line)
		res.ProductName = &name
		slog.Debug("Label product name", "line", best.index, "name", name, "score", best.score)
	}

	if p, ok := retailPrice(lines, retailIdx); ok {
		res.VarejoPrice = &p
	}
	if p, ok := wholesalePrice(lines, wholesaleIdx); ok {
		res.AtacadoPrice = &p
	}
	if q, ok := wholesaleQuantity(lines); ok {
		res.AtacadoQty = &q
	}

	// Labels without headings: first price is retail, second wholesale.
	if res.VarejoPrice == nil && res.AtacadoPrice == nil && found {
		prices := unheadedPrices(lines)
		if len(prices) > 0 {
			res.VarejoPrice = &prices[0]
		}
		if len(prices) > 1 {
			res.AtacadoPrice = &prices[1]
		}
	}

	return res
}
