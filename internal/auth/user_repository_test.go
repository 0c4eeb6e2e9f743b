package auth

import (
	"errors"
	"testing"
)

// ─── Create and fetch ──────────────────────────────────────────────────────

func TestUserCreateAndFetch(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	created := seedTestUser(t, db, "alice", RoleAdmin)
	if created.ID == "" {
		t.Fatal("Create left ID empty")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Create left timestamps zero")
	}

	byID, err := repo.GetByID(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Username != "alice" || byID.Role != RoleAdmin {
		t.Errorf("GetByID = %q/%q, want alice/%q", byID.Username, byID.Role, RoleAdmin)
	}
	if !byID.IsActive {
		t.Error("active flag lost on round trip")
	}
	if !byID.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", byID.CreatedAt, created.CreatedAt)
	}

	byName, err := repo.GetByUsername(t.Context(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("GetByUsername ID = %q, want %q", byName.ID, created.ID)
	}
}

func TestUserFetchMissing(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	if _, err := repo.GetByID(t.Context(), "usr-nope"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.GetByUsername(t.Context(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByUsername error = %v, want ErrUserNotFound", err)
	}
}

func TestUserDuplicateUsername(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	seedTestUser(t, db, "taken", RoleUser)

	dup := &User{
		Username:     "taken",
		DisplayName:  "Someone Else",
		PasswordHash: "x",
		Role:         RoleUser,
		IsActive:     true,
	}
	if err := repo.Create(t.Context(), dup); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("Create error = %v, want ErrUsernameExists", err)
	}
}

// ─── Listing ───────────────────────────────────────────────────────────────

func TestUserList(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	empty, err := repo.List(t.Context())
	if err != nil {
		t.Fatalf("List on empty table: %v", err)
	}
	if empty == nil {
		t.Error("List returned nil, want empty slice")
	}

	seedTestUser(t, db, "first", RoleOwner)
	seedTestUser(t, db, "second", RoleUser)

	users, err := repo.List(t.Context())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("List returned %d users, want 2", len(users))
	}
	for _, u := range users {
		if u.PasswordHash == "" {
			t.Errorf("List dropped password hash for %q", u.Username)
		}
	}
}

// ─── Mutation ──────────────────────────────────────────────────────────────

func TestUserUpdate(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	user := seedTestUser(t, db, "mutable", RoleUser)

	user.DisplayName = "Renamed"
	user.Email = "renamed@example.com"
	user.Role = RoleAdmin
	user.IsActive = false
	if err := repo.Update(t.Context(), user); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DisplayName != "Renamed" || got.Email != "renamed@example.com" {
		t.Errorf("profile fields = %q/%q, want Renamed/renamed@example.com", got.DisplayName, got.Email)
	}
	if got.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", got.Role, RoleAdmin)
	}
	if got.IsActive {
		t.Error("deactivation did not persist")
	}
	if got.Username != "mutable" {
		t.Errorf("Update changed username to %q", got.Username)
	}

	missing := &User{ID: "usr-missing", Role: RoleUser}
	if err := repo.Update(t.Context(), missing); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update missing error = %v, want ErrUserNotFound", err)
	}
}

func TestUserUpdatePassword(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	user := seedTestUser(t, db, "rotating", RoleUser)

	newHash, err := HashPassword("a-new-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := repo.UpdatePassword(t.Context(), user.ID, newHash); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	got, err := repo.GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PasswordHash != newHash {
		t.Error("password hash did not change")
	}

	if err := repo.UpdatePassword(t.Context(), "usr-missing", newHash); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UpdatePassword missing error = %v, want ErrUserNotFound", err)
	}
}

func TestUserDelete(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	user := seedTestUser(t, db, "doomed", RoleUser)

	if err := repo.Delete(t.Context(), user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(t.Context(), user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID after delete error = %v, want ErrUserNotFound", err)
	}

	if err := repo.Delete(t.Context(), user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second Delete error = %v, want ErrUserNotFound", err)
	}
}

func TestUserCount(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	count, err := repo.Count(t.Context())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("Count on empty table = %d, want 0", count)
	}

	seedTestUser(t, db, "one", RoleUser)
	seedTestUser(t, db, "two", RoleUser)

	count, err = repo.Count(t.Context())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}
}
