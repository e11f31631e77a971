package account

import "golang.org/x/crypto/bcrypt"

// Hasher turns credentials into stored form and checks them. The default
// is bcrypt; tests can swap in a cheaper implementation.
type Hasher interface {
	// Hash returns the stored form of a credential.
	Hash(credential string) (string, error)
	// Compare returns nil when credential matches the stored form.
	Compare(stored, credential string) error
}

// bcryptHasher implements Hasher with golang.org/x/crypto/bcrypt.
type bcryptHasher struct {
	cost int
}

func (h bcryptHasher) Hash(credential string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(credential), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h bcryptHasher) Compare(stored, credential string) error {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(credential))
}
