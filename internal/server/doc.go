// Package server implements the stockroom HTTP API surface.
//
// Owns:
//   - HTTP routing, handlers, and request/response contracts
//   - Item storage (Store, SQLStore, MemoryStore) and schema bootstrap
//   - Request telemetry (Metrics, Instrument, request and db spans) and panic recovery
//
// Does not own:
//   - Process configuration (shared.LoadConfig) and the global tracer provider (telemetry.Init)
//
// Invariants:
//   - JSON responses go through writeJSON; every error body is {"error", "message"}
//   - Every response, including 404/405 for unknown routes, is counted in Metrics
//   - A store call never holds a pooled connection past its own return
package server
