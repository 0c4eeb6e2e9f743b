// Package device provides device registry and persistence for the gateway.
//
// The package is built in three layers:
//
//	Repository (interface)
//	    └── SQLiteRepository (implementation)
//	            └── Registry (caching layer)
//
// # Repository
//
// Repository defines persistence operations for vacuum devices. The
// SQLite implementation stores the raw datapoint options and the last
// decoded semantic state as JSON columns, with timestamps serialised as
// RFC3339 strings.
//
// # Registry
//
// Registry wraps a Repository with an in-memory cache. Reads are served
// from the cache after RefreshCache(); writes go through to the
// repository and update the cache with deep copies so callers can never
// mutate cached entries. All Registry methods are safe for concurrent
// use.
//
// # Seeding
//
// SeedFromFile bootstraps the registry from a YAML device listing. The
// file is only consulted for devices that do not already exist, so
// changes made through the API are never clobbered on restart.
//
// Usage:
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(logger)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	if _, err := registry.SeedFromFile(ctx, "devices.yaml"); err != nil {
//	    return err
//	}
package device
