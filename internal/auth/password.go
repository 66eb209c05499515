// Package auth holds the credential primitives: bcrypt password hashing,
// signed session cookies and the Google OAuth client.
//
// HOW A PASSWORD IS STORED
// Registration hashes the plaintext once with bcrypt and keeps only the
// result in users.password_hash. Login never decrypts anything: it hashes
// the submitted password again with the salt and cost read back out of the
// stored value and compares the two in constant time.
//
// bcrypt takes care of three things for us:
//   - a fresh random salt per hash, so two users with the password
//     "hunter2" still get different rows
//   - the salt travels inside the hash string, so there is no salt column
//   - the cost factor makes every guess slow, which is what hurts an
//     attacker holding a copy of the database
//
// Hash format, exactly as stored:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (2^12 rounds)
//	 version
//
// THE 72-BYTE LIMIT
// bcrypt only reads the first 72 bytes of its input. Anything longer would
// hash to the same value as its 72-byte prefix, so Hash refuses it instead.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor used in production.
//
// Each +1 doubles the hashing time. 12 lands around a quarter of a second
// on a typical server: unnoticeable on a login form, expensive for anyone
// trying millions of guesses. Tests drop to bcrypt.MinCost.
const defaultCost = 12

// MaxPasswordBytes is the longest password bcrypt hashes without truncation.
const MaxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost creates a PasswordService with a custom cost.
// Tests in other packages pass bcrypt.MinCost to keep hashing fast.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// The output is self-contained ($2a$<cost>$<salt><hash>) and is stored as-is.
// Passwords over 72 bytes are rejected rather than silently truncated.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
// A wrong password yields ErrPasswordMismatch; a malformed hash yields a
// different, wrapped error.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
