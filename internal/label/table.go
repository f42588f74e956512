package label

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule is one row of the product-name vocabulary: a category of patterns and
// what a match does to a candidate line.
type Rule struct {
	Category string   `yaml:"category"`
	Patterns []string `yaml:"patterns"`
	Weight   int      `yaml:"weight"`
	// Skip makes a matching line ineligible as a product name. Weight is ignored for skip rules.
	Skip bool `yaml:"skip"`
}

// Table is the vocabulary the extractor scores lines with. Patterns are
// regular expressions matched against the lower-cased, accent-free line.
type Table struct {
	Rules []Rule `yaml:"rules"`
}

const (
	retailPattern    = `var[ae][jl]o`
	wholesalePattern = `atacado`
)

// DefaultTable returns the built-in vocabulary for Brazilian supermarket labels.
func DefaultTable() Table {
	return Table{Rules: []Rule{
		// Lines that can never be a product name
		{Category: "date", Skip: true, Patterns: []string{`^\d{2}/\d{2}/\d{4}`}},
		{Category: "code", Skip: true, Patterns: []string{`^fd\s*c?/?`}},
		{Category: "keyword", Skip: true, Patterns: []string{retailPattern, wholesalePattern}},
		{Category: "promo", Skip: true, Patterns: []string{`leve.*pague`}},
		{Category: "price-only", Skip: true, Patterns: []string{`^r?\$?\s*\d+[,.]\d{2}$`}},
		{Category: "barcode", Skip: true, Patterns: []string{`^\d{5,}$`}},
		{Category: "template", Skip: true, Patterns: []string{
			`teste|ettoleta|etioleta|procuto|produto\s+teste`,
			`nome\s+do\s+seu|seu\s+produto|cartaz.*splash`,
		}},
		{Category: "chrome", Skip: true, Patterns: []string{
			`settings|shift|ctrl|fn\b`,
			`antigravity|google|chrome`,
		}},

		// Penalties
		{Category: "brackets", Weight: -30, Patterns: []string{`[<>{}\[\]()]`}},
		{Category: "long-number", Weight: -20, Patterns: []string{`\d{6,}`}},
		{Category: "separators", Weight: -100, Patterns: []string{`[•·=|]`}},
		{Category: "leading-separator", Weight: -100, Patterns: []string{`^\d+\s*[•·=]`}},
		{Category: "symbols-only", Weight: -100, Patterns: []string{`^[\d\s•·=\-_|]+$`}},
		{Category: "product-code", Weight: -50, Patterns: []string{`[a-z]\d+[a-z]`}},
		{Category: "chrome-score", Weight: -200, Patterns: []string{
			`settings|shift|ctrl|fn\b`,
			`antigravity|google|chrome`,
		}},
		{Category: "noise", Weight: -100, Patterns: []string{`[#@*~^_\\]`}},

		// Boosts
		// g\b and lt?\b also hit any word ending in g or l ("integral", "sal")
		{Category: "unit", Weight: 30, Patterns: []string{`kg|kilo|g\b|ml|lt?\b`}},
		{Category: "tipo", Weight: 40, Patterns: []string{`tipo\s*\d+`}},
		{Category: "fd", Weight: 20, Patterns: []string{`fd\s*\d+`}},
		{Category: "packaging", Weight: 20, Patterns: []string{`unidade|un\b|pct|pacote`}},
		{Category: "staple", Weight: 100, Patterns: []string{`arroz|feijao|macarrao|leite`}},
		{Category: "brand", Weight: 100, Patterns: []string{
			`camil|tio\s+joao|yoki|nestle`,
			`sadia|perdigao|seara|aurora`,
		}},
		{Category: "produce", Weight: 100, Patterns: []string{
			`mamao|papaya|banana|laranja|maca|limao`,
			`tomate|cebola|batata|cenoura|alface|repolho`,
			`melancia|melao|abacaxi|uva|manga|morango`,
			`alho|pimentao|pepino|abobrinha`,
		}},
	}}
}

// Merge returns a copy of t where every rule of other replaces the rule with
// the same category, and rules with new categories are appended.
func (t Table) Merge(other Table) Table {
	out := Table{Rules: make([]Rule, len(t.Rules))}
	copy(out.Rules, t.Rules)

	index := make(map[string]int, len(out.Rules))
	for i, r := range out.Rules {
		index[r.Category] = i
	}
	for _, r := range other.Rules {
		if i, ok := index[r.Category]; ok {
			out.Rules[i] = r
			continue
		}
		index[r.Category] = len(out.Rules)
		out.Rules = append(out.Rules, r)
	}
	return out
}

// LoadTable reads a YAML vocabulary file and merges it over DefaultTable.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("reading vocabulary: %w", err)
	}

	var custom Table
	if err := yaml.Unmarshal(data, &custom); err != nil {
		return Table{}, fmt.Errorf("parsing vocabulary: %w", err)
	}
	for i, r := range custom.Rules {
		if r.Category == "" {
			return Table{}, fmt.Errorf("vocabulary rule %d has no category", i)
		}
	}

	return DefaultTable().Merge(custom), nil
}
