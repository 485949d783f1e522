// Package matching links one scan identity to at most one roster entry.
//
// The Matcher runs a fixed cascade of strategies and stops at the first that
// succeeds:
//
//  1. exact: a name variant, DOB, and eye all hit an index key
//  2. name_dob_only: a name variant and DOB hit a key for either eye
//  3. fuzzy_name: same DOB, best token-sorted similarity above
//     Policy.FuzzyNameMin
//  4. fuzzy_dob: DOB within Policy.DOBToleranceDays (but not equal), best
//     similarity above the stricter Policy.FuzzyDOBMin
//  5. partial_surname: first tokens agree and one remainder contains the
//     other, for compound surnames recorded differently in each source
//
// Matching is greedy. Two scans may resolve to the same roster entry; no
// global assignment is attempted. Candidates are visited in the index's
// sorted key order and ties keep the earlier candidate, so results are
// deterministic for a given index.
package matching
