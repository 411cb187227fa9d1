package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// ScryptParams are embedded in every stored hash so they can be raised
// later without invalidating existing rows. Defaults target well under
// 100ms per verification on commodity hardware.
type ScryptParams struct {
	LogN    int
	R       int
	P       int
	KeyLen  int
	SaltLen int
}

var defaultParams = ScryptParams{
	LogN:    15,
	R:       8,
	P:       1,
	KeyLen:  32,
	SaltLen: 16,
}

var ErrMalformedHash = errors.New("malformed password hash")

func HashPassword(password string) (string, error) {
	return HashPasswordWithParams(password, defaultParams)
}

func HashPasswordWithParams(password string, params ScryptParams) (string, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, 1<<params.LogN, params.R, params.P, params.KeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(key)

	return fmt.Sprintf("$scrypt$ln=%d,r=%d,p=%d$%s$%s",
		params.LogN, params.R, params.P, encodedSalt, encodedKey), nil
}

// VerifyPassword recomputes the derived key with the parameters and salt
// stored in encodedHash and compares in constant time. A malformed hash is
// an error, not a mismatch.
func VerifyPassword(password string, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	// "", "scrypt", params, salt, key
	if len(parts) != 5 || parts[0] != "" || parts[1] != "scrypt" {
		return false, ErrMalformedHash
	}

	var logN, r, p int
	if _, err := fmt.Sscanf(parts[2], "ln=%d,r=%d,p=%d", &logN, &r, &p); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if logN <= 0 || logN > 31 || r <= 0 || p <= 0 {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("%w: decode salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: decode hash: %v", ErrMalformedHash, err)
	}
	if len(key) == 0 {
		return false, ErrMalformedHash
	}

	computed, err := scrypt.Key([]byte(password), salt, 1<<logN, r, p, len(key))
	if err != nil {
		return false, fmt.Errorf("derive key: %w", err)
	}

	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

// FakeVerify burns one KDF derivation against a throwaway salt. Called on
// login for unknown usernames so the response time does not reveal whether
// the account exists.
func FakeVerify(password string) {
	salt := make([]byte, defaultParams.SaltLen)
	_, _ = scrypt.Key([]byte(password), salt, 1<<defaultParams.LogN, defaultParams.R, defaultParams.P, defaultParams.KeyLen)
}
