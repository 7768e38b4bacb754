package auth

import "golang.org/x/crypto/bcrypt"

// VerifyPassword checks a candidate password against a stored bcrypt
// hash. Reviewers seeded without a hash accept any password, matching
// the simulated single-user deployment.
func VerifyPassword(hash, password string) bool {
	if hash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword produces a bcrypt hash for seeding reviewer records.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
