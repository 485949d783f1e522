// Package textutil provides the string similarity primitives used by identity
// matching.
//
// The primary use cases are:
//   - Splitting names into lowercase tokens
//   - Computing a normalized indel similarity ratio between two strings
//   - Comparing names independent of token order
//
// Ratios are in [0, 1]. Two empty strings compare as identical; an empty
// string compared with a non-empty one scores 0.
package textutil
