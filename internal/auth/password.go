package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PASSWORD HASHING:
// bcrypt salts every hash and embeds salt and cost in its output
// ($2a$12$<salt><hash>), so the password_hash column is all we store.
// Comparison is constant time.

// defaultCost takes roughly 250ms per hash on current hardware.
const defaultCost = 12

const (
	// MinPasswordLength is enforced at sign-up.
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit; longer input is silently
	// truncated by the algorithm, so we reject it instead.
	MaxPasswordLength = 72
)

// ErrInvalidPassword means the password did not match the stored hash.
var ErrInvalidPassword = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords. The cost is a field so tests
// can run at bcrypt.MinCost.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost is for tests in other packages. Never use a low
// cost in production.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordLength {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil on a match and ErrInvalidPassword on a mismatch. An
// empty hash (a GitHub-only account) never matches.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrInvalidPassword
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
