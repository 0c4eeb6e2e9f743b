// Package auth provides authentication and authorisation for the gateway.
//
// It implements a 3-tier role model (user → admin → owner) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - JWT access/refresh token rotation with family-based theft detection
//   - Static role-permission mapping (compile-time, no database lookup)
//
// Users can operate vacuums; admins additionally manage device configuration
// and accounts; the owner role is reserved for destructive operations such
// as factory reset.
package auth
