package api

import (
	"encoding/json"
	"net/http"
)

// FactoryResetRequest defines the options for a factory reset.
type FactoryResetRequest struct {
	ClearDevices  bool   `json:"clear_devices"`
	ClearUsers    bool   `json:"clear_users"`
	ClearAuditLog bool   `json:"clear_audit_log"`
	Confirm       string `json:"confirm"`
}

// FactoryResetResponse reports what was deleted.
type FactoryResetResponse struct {
	Status  string         `json:"status"`
	Deleted map[string]int `json:"deleted"`
}

// handleFactoryReset clears selected data from the database in a single
// transaction, then refreshes the in-memory cache and bridge mappings.
//
// This is a destructive operation — the request must include an exact
// confirmation string as a safety guard. Clearing users also removes all
// refresh token sessions (FK cascade), including the caller's own.
func (s *Server) handleFactoryReset(w http.ResponseWriter, r *http.Request) {
	var req FactoryResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	// Safety guard: require exact confirmation string.
	if req.Confirm != "FACTORY RESET" {
		writeBadRequest(w, `confirm field must be exactly "FACTORY RESET"`)
		return
	}

	// Must select at least one category.
	if !req.ClearDevices && !req.ClearUsers && !req.ClearAuditLog {
		writeBadRequest(w, "at least one clear_* option must be true")
		return
	}

	if s.db == nil {
		writeInternalError(w, "database not configured")
		return
	}

	ctx := r.Context()
	deleted := make(map[string]int)

	// Execute all DELETEs in a single transaction, respecting FK order.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("factory reset: failed to begin transaction", "error", err)
		writeInternalError(w, "failed to begin transaction")
		return
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	// Helper to execute a DELETE and record the count.
	deleteFrom := func(table string) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return err
		}
		n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
		deleted[table] = int(n)
		return nil
	}

	if req.ClearDevices {
		if err := deleteFrom("devices"); err != nil {
			s.logger.Error("factory reset: failed to clear devices", "error", err)
			writeInternalError(w, "failed to clear devices")
			return
		}
	}

	// Users (refresh tokens first, although the FK cascade would catch them).
	if req.ClearUsers {
		if err := deleteFrom("refresh_tokens"); err != nil {
			s.logger.Error("factory reset: failed to clear refresh_tokens", "error", err)
			writeInternalError(w, "failed to clear sessions")
			return
		}
		if err := deleteFrom("users"); err != nil {
			s.logger.Error("factory reset: failed to clear users", "error", err)
			writeInternalError(w, "failed to clear users")
			return
		}
	}

	if req.ClearAuditLog {
		if err := deleteFrom("audit_logs"); err != nil {
			s.logger.Error("factory reset: failed to clear audit_logs", "error", err)
			writeInternalError(w, "failed to clear audit log")
			return
		}
	}

	// Commit the transaction.
	if err := tx.Commit(); err != nil {
		s.logger.Error("factory reset: failed to commit transaction", "error", err)
		writeInternalError(w, "failed to commit factory reset")
		return
	}

	s.logger.Info("factory reset committed", "deleted", deleted)

	// Refresh in-memory caches after successful DB wipe.
	if req.ClearDevices {
		if err := s.registry.RefreshCache(ctx); err != nil {
			s.logger.Warn("factory reset: failed to refresh device cache", "error", err)
		}
		if s.bridge != nil {
			s.bridge.ReloadDevices(ctx)
			s.logger.Info("bridge devices reloaded after factory reset")
		}
	}

	writeJSON(w, http.StatusOK, FactoryResetResponse{
		Status:  "ok",
		Deleted: deleted,
	})
}
