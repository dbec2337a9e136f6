// Package token generates opaque viewer tokens.
//
// Tokens are cryptographically random, Base64 RawURL encoded strings.
// The default length of 21 bytes yields 168 bits of entropy, which
// makes guessing or enumeration infeasible over any realistic token
// validity window.
package token
