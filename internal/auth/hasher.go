package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// passwordPepper keys the pre-hash every password goes through before bcrypt.
// Changing it invalidates every stored hash.
var passwordPepper = []byte("taskmanager/password/v1")

// Hasher hashes and verifies passwords using salted bcrypt. It is safe for
// concurrent use.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to bcrypt's
// accepted range. A cost of zero or less selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	cost = clampCost(cost)
	dummy, err := bcrypt.GenerateFromPassword(prepare("unused dummy password"), cost)
	if err != nil {
		dummy = []byte(dummyHash)
	}
	return &Hasher{cost: cost, dummy: dummy}
}

func clampCost(cost int) int {
	switch {
	case cost <= 0:
		return bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		return bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		return bcrypt.MaxCost
	}
	return cost
}

func (h *Hasher) Cost() int { return h.cost }

// Hash returns a bcrypt hash with an embedded random salt, so hashing the same
// password twice yields different strings. The only failure is the system
// entropy source.
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(prepare(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches hash. Malformed or foreign-format
// hashes never match.
func (h *Hasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), prepare(password)) == nil
}

// prepare maps any password to a fixed 44-byte bcrypt input. Every input takes
// the same path, so no password can equal another one's prepared form, and
// bytes past bcrypt's 72-byte limit still count.
func prepare(password string) []byte {
	mac := hmac.New(sha256.New, passwordPepper)
	mac.Write([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

// dummyHash stands in when the per-cost dummy cannot be generated. It is not
// a hash of any password.
//
//nolint:gosec // G101: not a credential.
const dummyHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8.lG6rJmKfV2yXlGmL9GtK4H9GqZ5S"

// burn spends one verification worth of CPU at the hasher's cost, so a login
// for an unknown email takes as long as a wrong password. The result is
// discarded.
func (h *Hasher) burn(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, prepare(password))
}
