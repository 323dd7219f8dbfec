// Package shortid generates compact, URL-safe, collision-resistant
// identifiers for discussions and comments. Uniqueness is enforced by the
// store's unique indexes; the generator only makes collisions improbable.
package shortid

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet matches the URL-safe character set used in short links.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-_"

// Length of 9 gives a 54-bit identifier space, plenty against random
// collisions at this system's record counts.
const Length = 9

// New returns a fresh short identifier.
func New() string {
	return gonanoid.MustGenerate(Alphabet, Length)
}
