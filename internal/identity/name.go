package identity

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxCombinations bounds spelling expansion for pathological inputs.
const maxCombinations = 256

var hyphenSpacing = strings.NewReplacer("- ", "-", " -", "-")

// NormalizeName collapses whitespace, joins hyphen-adjacent fragments, and
// title-cases the result for display. Empty input is returned unchanged.
func NormalizeName(raw string) string {
	joined := joinHyphens(strings.Join(strings.Fields(raw), " "))
	if joined == "" {
		return joined
	}
	return cases.Title(language.Und).String(joined)
}

// CanonicalName is the comparison form of a name: lowercase, commas treated
// as separators, whitespace collapsed, hyphen-adjacent fragments joined.
func CanonicalName(raw string) string {
	lowered := strings.ToLower(strings.ReplaceAll(raw, ",", " "))
	return joinHyphens(strings.Join(strings.Fields(lowered), " "))
}

func joinHyphens(name string) string {
	for {
		next := hyphenSpacing.Replace(name)
		if next == name {
			return strings.Trim(next, "-")
		}
		name = next
	}
}

// Variants is the set of canonical renderings of one name.
type Variants map[string]struct{}

// Contains reports whether name, in canonical form, is a member.
func (v Variants) Contains(name string) bool {
	_, ok := v[CanonicalName(name)]
	return ok
}

// List returns the members in sorted order.
func (v Variants) List() []string {
	out := make([]string, 0, len(v))
	for name := range v {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (v Variants) add(tokens []string) {
	if len(tokens) == 0 {
		return
	}
	v[strings.Join(tokens, " ")] = struct{}{}
}

// Normalizer generates name variants from an injected spelling table and
// suffix list.
type Normalizer struct {
	spellings *SpellingTable
	suffixes  map[string]struct{}
}

// NewNormalizer returns a Normalizer. A nil table disables spelling
// substitution.
func NewNormalizer(spellings *SpellingTable, suffixes []string) *Normalizer {
	set := make(map[string]struct{}, len(suffixes))
	for _, suffix := range suffixes {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		set[suffix] = struct{}{}
		set[strings.TrimSuffix(suffix, ".")] = struct{}{}
	}
	return &Normalizer{spellings: spellings, suffixes: set}
}

// Variations returns the closure of plausible renderings of raw: the
// original, the suffix-stripped form, every combination of per-token
// spelling equivalents in original and reversed order, and split-order
// variants for hyphenated names.
func (n *Normalizer) Variations(raw string) Variants {
	out := make(Variants)
	canonical := CanonicalName(raw)
	if canonical == "" {
		return out
	}
	tokens := strings.Fields(canonical)
	out.add(tokens)

	if base := n.stripSuffixes(tokens); len(base) > 0 && len(base) < len(tokens) {
		tokens = base
		out.add(tokens)
	}

	for _, combo := range n.combinations(tokens) {
		out.add(combo)
		if len(combo) < 2 {
			continue
		}
		out.add(reversed(combo))
		if len(combo) > 2 && (strings.Contains(combo[0], "-") || strings.Contains(combo[1], "-")) {
			swapped := append([]string{combo[1], combo[0]}, combo[2:]...)
			out.add(swapped)
		}
	}

	if split := splitEdgeHyphens(tokens); len(split) > len(tokens) {
		out.add(split)
		out.add(reversed(split))
	}
	return out
}

func (n *Normalizer) stripSuffixes(tokens []string) []string {
	base := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := n.suffixes[strings.TrimSuffix(token, ".")]; ok {
			continue
		}
		if _, ok := n.suffixes[token]; ok {
			continue
		}
		base = append(base, token)
	}
	return base
}

// combinations expands every token into its spelling equivalents.
func (n *Normalizer) combinations(tokens []string) [][]string {
	combos := [][]string{{}}
	for _, token := range tokens {
		options := n.spellings.Equivalents(token)
		next := make([][]string, 0, len(combos)*len(options))
	expand:
		for _, prefix := range combos {
			for _, option := range options {
				combo := make([]string, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, option))
				if len(next) >= maxCombinations {
					break expand
				}
			}
		}
		combos = next
	}
	return combos
}

func reversed(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, token := range tokens {
		out[len(tokens)-1-i] = token
	}
	return out
}

// splitEdgeHyphens breaks a hyphenated leading or trailing token into its
// parts.
func splitEdgeHyphens(tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}
	last := len(tokens) - 1
	if !strings.Contains(tokens[0], "-") && !strings.Contains(tokens[last], "-") {
		return tokens
	}
	var out []string
	for i, token := range tokens {
		if i == 0 || i == last {
			out = append(out, strings.FieldsFunc(token, func(r rune) bool { return r == '-' })...)
			continue
		}
		out = append(out, token)
	}
	return out
}
