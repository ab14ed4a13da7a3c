// Package auth implements password hashing for cauth (C1).
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/cauth/cauth/internal/domain"
)

// argon2Params mirrors artha-au-webserver/pkg/auth/auth.go's defaultPasswordParams.
type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

var defaultParams = argon2Params{
	memory:      64 * 1024,
	iterations:  3,
	parallelism: 2,
	saltLength:  16,
	keyLength:   32,
}

const argon2idPrefix = "argon2id"

// HashPassword derives a memory-hard key from password with a fresh random
// salt and encodes algorithm, parameters, salt, and key into one
// self-describing ASCII string (I1, §4.1).
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", domain.ErrHash
	}

	p := defaultParams
	salt := make([]byte, p.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrHash, err)
	}

	key := argon2.IDKey([]byte(password), salt, p.iterations, p.memory, p.parallelism, p.keyLength)

	encoded := fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix, argon2.Version, p.memory, p.iterations, p.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// VerifyPassword recomputes the key from password using the parameters
// recorded in encodedHash and compares in constant time.
func VerifyPassword(password, encodedHash string) (bool, error) {
	p, salt, key, err := decode(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.iterations, p.memory, p.parallelism, p.keyLength)
	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

func decode(encodedHash string) (argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != argon2idPrefix {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: malformed hash", domain.ErrHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: %v", domain.ErrHash, err)
	}
	if version != argon2.Version {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: unsupported argon2 version", domain.ErrHash)
	}

	var p argon2Params
	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: %v", domain.ErrHash, err)
	}
	p.memory, p.iterations, p.parallelism = memory, iterations, parallelism

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: %v", domain.ErrHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: %v", domain.ErrHash, err)
	}
	p.keyLength = uint32(len(key))

	return p, salt, key, nil
}
