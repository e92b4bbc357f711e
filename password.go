package accountd

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns plaintext passwords into stored hashes and checks candidates
// against them. bcrypt salts every hash itself, so two hashes of the same
// password never compare equal and the cost factor is embedded in the hash.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost. A cost outside
// bcrypt's supported range falls back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash produces a storable hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(out), nil
}

// Verify reports whether plaintext matches the stored hash. A malformed or
// empty stored hash verifies as false rather than erroring; the comparison
// itself is constant-time inside bcrypt.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
