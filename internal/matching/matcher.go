package matching

import (
	"strings"

	"iclink/internal/identity"
	"iclink/internal/roster"
	"iclink/internal/textutil"
)

// Matcher resolves scan identities against a roster index.
type Matcher struct {
	names  *identity.Normalizer
	dob    *identity.DOBNormalizer
	policy Policy
}

// New returns a Matcher. Nil normalizers fall back to an empty spelling table
// and the default year repair.
func New(names *identity.Normalizer, dob *identity.DOBNormalizer, policy Policy) *Matcher {
	if names == nil {
		names = identity.NewNormalizer(nil, nil)
	}
	if dob == nil {
		dob = identity.NewDOBNormalizer(identity.RepairLeadingZeroYear)
	}
	return &Matcher{names: names, dob: dob, policy: policy.normalized()}
}

// Policy returns the effective thresholds.
func (m *Matcher) Policy() Policy { return m.policy }

// Variations exposes the name variants Match would try for raw.
func (m *Matcher) Variations(raw string) identity.Variants {
	return m.names.Variations(raw)
}

// Match runs the strategy cascade for id.
func (m *Matcher) Match(id identity.Identity, idx *roster.Index) Result {
	return m.MatchVariants(m.names.Variations(id.RawName), m.dob.Normalize(id.RawDOB), id.Eye, idx)
}

// MatchVariants runs the cascade for precomputed variants and a normalized DOB.
func (m *Matcher) MatchVariants(variants identity.Variants, dob string, eye identity.Eye, idx *roster.Index) Result {
	result := Result{Strategy: StrategyNone, DOB: dob, Eye: eye}
	if idx == nil || len(variants) == 0 {
		return result
	}
	names := variants.List()

	steps := []func([]string, string, identity.Eye, *roster.Index) (roster.MatchKey, float64, bool){
		m.exact,
		m.nameDOB,
		m.fuzzyName,
		m.fuzzyDOB,
		m.partialSurname,
	}
	for i, step := range steps {
		key, score, ok := step(names, dob, eye, idx)
		if !ok {
			continue
		}
		entry, _ := idx.Lookup(key)
		result.Entry = entry
		result.Key = key
		result.Score = score
		result.Strategy = Strategies()[i]
		result.annotate()
		return result
	}
	return result
}

func (m *Matcher) exact(names []string, dob string, eye identity.Eye, idx *roster.Index) (roster.MatchKey, float64, bool) {
	if dob == "" {
		return roster.MatchKey{}, 0, false
	}
	for _, name := range names {
		key := roster.MatchKey{Name: name, DOB: dob, Eye: eye}
		if _, ok := idx.Lookup(key); ok {
			return key, 1, true
		}
	}
	return roster.MatchKey{}, 0, false
}

func (m *Matcher) nameDOB(names []string, dob string, eye identity.Eye, idx *roster.Index) (roster.MatchKey, float64, bool) {
	if dob == "" {
		return roster.MatchKey{}, 0, false
	}
	for _, name := range names {
		if keys := idx.KeysWithNameDOB(name, dob); len(keys) > 0 {
			return keys[0], 1, true
		}
	}
	return roster.MatchKey{}, 0, false
}

func (m *Matcher) fuzzyName(names []string, dob string, eye identity.Eye, idx *roster.Index) (roster.MatchKey, float64, bool) {
	if dob == "" {
		return roster.MatchKey{}, 0, false
	}
	var best candidate
	for _, key := range idx.KeysWithDOB(dob) {
		best.consider(key, bestRatio(names, key.Name), eye)
	}
	return best.accept(m.policy.FuzzyNameMin)
}

func (m *Matcher) fuzzyDOB(names []string, dob string, eye identity.Eye, idx *roster.Index) (roster.MatchKey, float64, bool) {
	if dob == "" {
		return roster.MatchKey{}, 0, false
	}
	var best candidate
	idx.Range(func(key roster.MatchKey, _ *roster.Entry) bool {
		days, ok := identity.DaysApart(dob, key.DOB)
		if !ok || days == 0 || days > m.policy.DOBToleranceDays {
			return true
		}
		best.consider(key, bestRatio(names, key.Name), eye)
		return true
	})
	return best.accept(m.policy.FuzzyDOBMin)
}

func (m *Matcher) partialSurname(names []string, _ string, _ identity.Eye, idx *roster.Index) (roster.MatchKey, float64, bool) {
	for _, name := range names {
		scanSplits := splits(name)
		if len(scanSplits) == 0 {
			continue
		}
		var (
			found roster.MatchKey
			ok    bool
		)
		idx.Range(func(key roster.MatchKey, _ *roster.Entry) bool {
			for _, s := range scanSplits {
				for _, r := range splits(key.Name) {
					if s.first != r.first {
						continue
					}
					if strings.Contains(s.rest, r.rest) || strings.Contains(r.rest, s.rest) {
						found, ok = key, true
						return false
					}
				}
			}
			return true
		})
		if ok {
			return found, textutil.TokenSortRatio(name, found.Name), true
		}
	}
	return roster.MatchKey{}, 0, false
}

type split struct {
	first string
	rest  string
}

// splits returns (first token, remainder) under both token orders.
func splits(name string) []split {
	tokens := strings.Fields(name)
	if len(tokens) < 2 {
		return nil
	}
	last := len(tokens) - 1
	return []split{
		{first: tokens[0], rest: strings.Join(tokens[1:], " ")},
		{first: tokens[last], rest: strings.Join(tokens[:last], " ")},
	}
}

func bestRatio(names []string, target string) float64 {
	var best float64
	for _, name := range names {
		if ratio := textutil.TokenSortRatio(name, target); ratio > best {
			best = ratio
		}
	}
	return best
}

// candidate tracks the best-scoring key. Equal scores keep the earlier key
// unless the later one matches the scan's eye and the earlier does not.
type candidate struct {
	key     roster.MatchKey
	score   float64
	sameEye bool
	set     bool
}

func (c *candidate) consider(key roster.MatchKey, score float64, eye identity.Eye) {
	sameEye := key.Eye == eye
	switch {
	case !c.set, score > c.score, score == c.score && sameEye && !c.sameEye:
		*c = candidate{key: key, score: score, sameEye: sameEye, set: true}
	}
}

func (c candidate) accept(min float64) (roster.MatchKey, float64, bool) {
	if !c.set || c.score <= min {
		return roster.MatchKey{}, 0, false
	}
	return c.key, c.score, true
}
