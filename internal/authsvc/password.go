package authsvc

import (
	"fmt"

	"github.com/alexedwards/argon2id"
)

// HashParams carries the Argon2id tuning knobs from config.Config.
type HashParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// hashPassword hashes a password using Argon2id with the given parameters.
func hashPassword(password string, p HashParams) (string, error) {
	hash, err := argon2id.CreateHash(password, &argon2id.Params{
		Memory:      p.Memory,
		Iterations:  p.Iterations,
		Parallelism: p.Parallelism,
		SaltLength:  p.SaltLength,
		KeyLength:   p.KeyLength,
	})
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// verifyPassword checks whether a plaintext password matches the given
// Argon2id hash.
func verifyPassword(password, hash string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	return match, nil
}

// needsRehash reports whether hash was generated with parameters that
// differ from p, indicating it should be regenerated on next login.
func needsRehash(hash string, p HashParams) bool {
	params, salt, key, err := argon2id.DecodeHash(hash)
	if err != nil {
		return false
	}
	return params.Memory != p.Memory ||
		params.Iterations != p.Iterations ||
		params.Parallelism != p.Parallelism ||
		uint32(len(salt)) != p.SaltLength ||
		uint32(len(key)) != p.KeyLength
}
