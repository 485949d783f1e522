package roster

import (
	"sort"
	"strings"

	"iclink/internal/identity"
)

// MatchKey is the join key between scans and roster rows.
type MatchKey struct {
	Name string
	DOB  string
	Eye  identity.Eye
}

func (k MatchKey) String() string {
	return k.Name + "|" + k.DOB + "|" + k.Eye.String()
}

func (k MatchKey) less(other MatchKey) bool {
	if k.Name != other.Name {
		return k.Name < other.Name
	}
	if k.DOB != other.DOB {
		return k.DOB < other.DOB
	}
	return k.Eye < other.Eye
}

type nameDOB struct {
	name string
	dob  string
}

// Index maps every name variant of every roster row to its Entry.
type Index struct {
	entries    map[MatchKey]*Entry
	keys       []MatchKey
	byDOB      map[string][]MatchKey
	byNameDOB  map[nameDOB][]MatchKey
	rows       []*Entry
	collisions int
}

// Build resolves rows and indexes one key per name variant and the row's
// own DOB and eye. When two rows produce the same key the later row wins and
// the collision is counted. Rows without a name are skipped.
func Build(rows []Row, opts Options) *Index {
	opts = opts.withDefaults()
	idx := &Index{
		entries:   make(map[MatchKey]*Entry),
		byDOB:     make(map[string][]MatchKey),
		byNameDOB: make(map[nameDOB][]MatchKey),
	}
	for _, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			continue
		}
		entry := NewEntry(row, opts)
		idx.rows = append(idx.rows, entry)
		for _, variant := range opts.Names.Variations(row.Name).List() {
			key := MatchKey{Name: variant, DOB: entry.DOB, Eye: entry.Eye}
			if prev, ok := idx.entries[key]; ok && prev != entry {
				idx.collisions++
			}
			idx.entries[key] = entry
		}
	}

	idx.keys = make([]MatchKey, 0, len(idx.entries))
	for key := range idx.entries {
		idx.keys = append(idx.keys, key)
	}
	sort.Slice(idx.keys, func(i, j int) bool { return idx.keys[i].less(idx.keys[j]) })
	for _, key := range idx.keys {
		idx.byDOB[key.DOB] = append(idx.byDOB[key.DOB], key)
		nd := nameDOB{name: key.Name, dob: key.DOB}
		idx.byNameDOB[nd] = append(idx.byNameDOB[nd], key)
	}
	return idx
}

// Lookup returns the entry stored under key.
func (idx *Index) Lookup(key MatchKey) (*Entry, bool) {
	entry, ok := idx.entries[key]
	return entry, ok
}

// Keys returns every key in sorted order.
func (idx *Index) Keys() []MatchKey {
	out := make([]MatchKey, len(idx.keys))
	copy(out, idx.keys)
	return out
}

// Range calls fn for each key in sorted order until fn returns false.
func (idx *Index) Range(fn func(MatchKey, *Entry) bool) {
	for _, key := range idx.keys {
		if !fn(key, idx.entries[key]) {
			return
		}
	}
}

// KeysWithDOB returns the sorted keys carrying dob.
func (idx *Index) KeysWithDOB(dob string) []MatchKey {
	return append([]MatchKey(nil), idx.byDOB[dob]...)
}

// KeysWithNameDOB returns the sorted keys carrying name and dob, any eye.
func (idx *Index) KeysWithNameDOB(name, dob string) []MatchKey {
	return append([]MatchKey(nil), idx.byNameDOB[nameDOB{name: name, dob: dob}]...)
}

// Entries returns the resolved rows in roster order.
func (idx *Index) Entries() []*Entry {
	return append([]*Entry(nil), idx.rows...)
}

// Len returns the number of keys.
func (idx *Index) Len() int { return len(idx.keys) }

// Collisions returns how many key insertions replaced another row's entry.
func (idx *Index) Collisions() int { return idx.collisions }
