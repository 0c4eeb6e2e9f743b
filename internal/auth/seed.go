package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
)

// ownerPasswordEnv lets deployments fix the first-boot owner password
// instead of reading a generated one from the logs. Useful for headless
// installs provisioned by scripts.
const ownerPasswordEnv = "LOCALTUYA_OWNER_PASSWORD"

// seedPasswordBytes sizes the generated first-boot password (hex-encoded,
// so twice this many characters).
const seedPasswordBytes = 16

// SeedOwner creates the initial owner account when the users table is
// empty. The password comes from LOCALTUYA_OWNER_PASSWORD when set,
// otherwise it is generated and logged once; either way it should be
// changed after first login. Returns the plaintext password, or "" when
// seeding was skipped.
func SeedOwner(ctx context.Context, userRepo UserRepository, logger *slog.Logger) (string, error) {
	count, err := userRepo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking for existing accounts: %w", err)
	}
	if count > 0 {
		logger.Info("accounts exist, skipping owner seed")
		return "", nil
	}

	password := os.Getenv(ownerPasswordEnv)
	generated := password == ""
	if generated {
		raw := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(raw); err != nil {
			return "", fmt.Errorf("generating owner password: %w", err)
		}
		password = hex.EncodeToString(raw)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing owner password: %w", err)
	}

	owner := &User{
		Username:     "owner",
		DisplayName:  "Gateway Owner",
		PasswordHash: hash,
		Role:         RoleOwner,
		IsActive:     true,
	}
	if err := userRepo.Create(ctx, owner); err != nil {
		return "", fmt.Errorf("creating owner account: %w", err)
	}

	if generated {
		logger.Warn("owner account seeded with generated password",
			"username", owner.Username,
			"password", password,
			"action_required", "change this password immediately",
		)
	} else {
		logger.Info("owner account seeded from environment",
			"username", owner.Username,
			"source", ownerPasswordEnv,
		)
	}
	return password, nil
}
