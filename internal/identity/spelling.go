package identity

import (
	"sort"
	"strings"
)

// SpellingTable holds closed groups of equivalent name spellings. The first
// spelling of each group is its canonical form.
type SpellingTable struct {
	canonical map[string]string
	members   map[string][]string
}

// NewSpellingTable builds a table from equivalence groups. Matching is
// case-insensitive. A spelling listed in several groups keeps its first group.
func NewSpellingTable(groups [][]string) *SpellingTable {
	t := &SpellingTable{
		canonical: make(map[string]string),
		members:   make(map[string][]string),
	}
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		canon := strings.ToLower(strings.TrimSpace(group[0]))
		if canon == "" {
			continue
		}
		if _, taken := t.canonical[canon]; taken {
			continue
		}
		var members []string
		for _, spelling := range group {
			spelling = strings.ToLower(strings.TrimSpace(spelling))
			if spelling == "" {
				continue
			}
			if _, taken := t.canonical[spelling]; taken {
				continue
			}
			t.canonical[spelling] = canon
			members = append(members, spelling)
		}
		sort.Strings(members)
		t.members[canon] = members
	}
	return t
}

// Equivalents returns every spelling equivalent to token including itself,
// sorted. Tokens outside the table yield a single-element slice.
func (t *SpellingTable) Equivalents(token string) []string {
	if t == nil {
		return []string{token}
	}
	canon, ok := t.canonical[strings.ToLower(token)]
	if !ok {
		return []string{token}
	}
	return t.members[canon]
}

// Len reports the number of spellings known to the table.
func (t *SpellingTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.canonical)
}
