// Package api implements the HTTP REST API and WebSocket server for the
// localtuya gateway.
//
// This package provides:
//   - REST endpoints for device CRUD, state reads, and vacuum commands
//   - WebSocket hub for real-time state change broadcasts
//   - JWT authentication with refresh-token rotation and role-based permissions
//   - Single-use tickets for WebSocket auth (no tokens in URLs)
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between user interfaces (web admin, mobile apps) and
// the device registry + MQTT bus. When the Tuya bridge runs in the same
// process it is attached via SetBridge and commands execute synchronously
// with typed error mapping. Without an in-process bridge, commands are
// published to the bridge's MQTT command topic and accepted asynchronously.
// State changes published by the bridge are relayed to WebSocket clients.
//
// # Security
//
// Authentication uses Argon2id password hashing, short-lived HS256 access
// tokens, and rotating refresh tokens with family-based reuse detection.
// Routes are gated by role permissions (user, admin, owner).
//
// # Graceful Degradation
//
// The server operates without MQTT — reads and WebSocket connections work,
// only async device commands fail. This enables testing and partial operation.
package api
