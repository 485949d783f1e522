// Package roster reads the surgical outcome roster and indexes it by every
// name variant of each row.
//
// Exchange resolution happens once, while entries are built: when a row is
// flagged as an exchange, the exchanged lens size, vault, and power become the
// authoritative outcome and the originals are kept only for audit output.
// The resulting Index is read-only and safe for concurrent lookups.
package roster
