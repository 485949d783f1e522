// Package identity canonicalizes the person identity carried by scan exports
// and roster rows so the two sources can be joined without a shared key.
//
// Names are reduced to a lowercase, whitespace-collapsed, hyphen-joined form
// and expanded into a closed set of variants (token order swaps, suffix
// removal, spelling equivalences from an injected table). Dates of birth are
// normalized to YYYY-MM-DD with an isolated, replaceable year-repair step.
// Eye laterality is parsed into OD, OS, or UNKNOWN.
//
// Every function here is pure and safe for concurrent use.
package identity
