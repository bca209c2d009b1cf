package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier checks a login attempt's plaintext password against the
// stored hash. It is an interface so handler tests can stub the check
// without paying the bcrypt cost.
type PasswordVerifier interface {
	// Compare returns nil when the plaintext password matches the hash, and
	// a non-nil error on mismatch or a malformed hash.
	Compare(hashedPassword, password string) error
}

// BcryptVerifier is the production PasswordVerifier. Hashing happens in the
// user store at registration; this side only verifies.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a new BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements PasswordVerifier using bcrypt's constant-time check.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
