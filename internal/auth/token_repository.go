package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenRepository defines the interface for refresh token persistence.
type TokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	GetByID(ctx context.Context, id string) (*RefreshToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	RotateRefreshToken(ctx context.Context, oldID string, newToken *RefreshToken) error
	ListActiveByUser(ctx context.Context, userID string) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// tokenColumns is the column list every token SELECT uses, in scanToken order.
const tokenColumns = "id, user_id, family_id, token_hash, device_info, expires_at, revoked, created_at"

// SQLiteTokenRepository implements TokenRepository using SQLite.
type SQLiteTokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new SQLite-backed token repository.
func NewTokenRepository(db *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db}
}

// HashToken computes the SHA-256 hex digest of a raw token. Only digests
// are stored; a database leak does not leak usable refresh tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// execer covers both *sql.DB and *sql.Tx for the shared insert helper.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertToken fills in generated fields and writes the token row. A token
// created outside a rotation starts its own family.
func insertToken(ctx context.Context, e execer, t *RefreshToken) error {
	if t.ID == "" {
		t.ID = "rt-" + uuid.NewString()[:16]
	}
	if t.FamilyID == "" {
		t.FamilyID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := e.ExecContext(ctx, `
		INSERT INTO refresh_tokens (`+tokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.FamilyID, t.TokenHash,
		nullString(t.DeviceInfo), formatTime(t.ExpiresAt),
		t.Revoked, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting refresh token: %w", err)
	}
	return nil
}

// Create stores a new refresh token, generating ID and family when unset.
func (r *SQLiteTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	return insertToken(ctx, r.db, token)
}

// GetByID retrieves a refresh token by its ID.
func (r *SQLiteTokenRepository) GetByID(ctx context.Context, id string) (*RefreshToken, error) {
	return r.queryOne(ctx, "id", id)
}

// GetByTokenHash retrieves a refresh token by the SHA-256 digest of its
// raw value. This is the lookup the refresh and logout endpoints use.
func (r *SQLiteTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	return r.queryOne(ctx, "token_hash", tokenHash)
}

// Revoke marks a single refresh token as revoked.
func (r *SQLiteTokenRepository) Revoke(ctx context.Context, id string) error {
	return r.revokeWhere(ctx, "id", id)
}

// RevokeFamily revokes every token descended from one login. Reuse of an
// already-rotated token trips this: the whole lineage dies, so a stolen
// token cannot be replayed alongside the legitimate one.
func (r *SQLiteTokenRepository) RevokeFamily(ctx context.Context, familyID string) error {
	return r.revokeWhere(ctx, "family_id", familyID)
}

// RevokeAllForUser revokes every session a user holds. Password changes
// and admin force-logout go through here.
func (r *SQLiteTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.revokeWhere(ctx, "user_id", userID)
}

// RotateRefreshToken revokes the consumed token and stores its successor
// in one transaction, so two concurrent refreshes cannot both succeed.
func (r *SQLiteTokenRepository) RotateRefreshToken(ctx context.Context, oldID string, newToken *RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning rotation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE id = ?", oldID); err != nil {
		return fmt.Errorf("revoking consumed token: %w", err)
	}
	if err := insertToken(ctx, tx, newToken); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rotation: %w", err)
	}
	return nil
}

// ListActiveByUser returns a user's live sessions: not revoked, not
// expired, newest first.
func (r *SQLiteTokenRepository) ListActiveByUser(ctx context.Context, userID string) ([]RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tokenColumns+` FROM refresh_tokens
		WHERE user_id = ? AND revoked = 0 AND expires_at > ?
		ORDER BY created_at DESC`,
		userID, formatTime(time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("querying active tokens: %w", err)
	}
	defer rows.Close()

	tokens := []RefreshToken{}
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tokens: %w", err)
	}
	return tokens, nil
}

// DeleteExpired purges tokens past their expiry, revoked or not, and
// returns how many were removed.
func (r *SQLiteTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at <= ?",
		formatTime(time.Now().UTC()))
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // sqlite always reports
	return n, nil
}

func (r *SQLiteTokenRepository) queryOne(ctx context.Context, column, value string) (*RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM refresh_tokens WHERE "+column+" = ?", value)
	return scanToken(row)
}

func (r *SQLiteTokenRepository) revokeWhere(ctx context.Context, column, value string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE "+column+" = ?", value); err != nil {
		return fmt.Errorf("revoking tokens by %s: %w", column, err)
	}
	return nil
}

func scanToken(s rowScanner) (*RefreshToken, error) {
	var (
		t                    RefreshToken
		deviceInfo           sql.NullString
		expiresAt, createdAt string
	)
	err := s.Scan(&t.ID, &t.UserID, &t.FamilyID, &t.TokenHash,
		&deviceInfo, &expiresAt, &t.Revoked, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("scanning refresh token: %w", err)
	}

	t.DeviceInfo = deviceInfo.String
	t.ExpiresAt = parseTime(expiresAt)
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}
