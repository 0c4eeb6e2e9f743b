package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argonParams holds the Argon2id cost parameters carried in a PHC string.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

// defaultArgonParams follows the OWASP 2025 recommendation: 64 MiB,
// 3 iterations, single lane.
var defaultArgonParams = argonParams{memory: 64 * 1024, time: 3, threads: 1}

const (
	argonSaltLen = 16
	argonKeyLen  = 32
)

// ErrHashFormat indicates a stored hash that is not a valid Argon2id PHC
// string. Seen when a hash column is corrupted or hand-edited.
var ErrHashFormat = errors.New("malformed password hash")

// HashPassword derives an Argon2id hash of the password and encodes it as
// a PHC string: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>. The salt is
// fresh per call, so equal passwords produce distinct strings.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	p := defaultArgonParams
	key := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, argonKeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword re-derives the hash with the parameters stored in the PHC
// string and compares in constant time. The cost parameters come from the
// stored hash, so old hashes keep verifying after a default change.
func VerifyPassword(password, encodedHash string) (bool, error) {
	p, salt, want, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, uint32(len(want))) //nolint:gosec // G115: key length fits uint32
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// parsePHC splits an Argon2id PHC string into parameters, salt, and key.
func parsePHC(encoded string) (p argonParams, salt, key []byte, err error) {
	fields := strings.Split(encoded, "$")
	// A PHC string has a leading empty field plus five segments:
	// algorithm, version, parameters, salt, hash.
	if len(fields) != 6 || fields[0] != "" {
		return p, nil, nil, ErrHashFormat
	}
	if fields[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: algorithm %q", ErrHashFormat, fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil { //nolint:govet // shadow: scoped to this check
		return p, nil, nil, fmt.Errorf("%w: version segment", ErrHashFormat)
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil { //nolint:govet // shadow: scoped to this check
		return p, nil, nil, fmt.Errorf("%w: parameter segment", ErrHashFormat)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %w", ErrHashFormat, err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return p, nil, nil, fmt.Errorf("%w: hash: %w", ErrHashFormat, err)
	}
	return p, salt, key, nil
}
