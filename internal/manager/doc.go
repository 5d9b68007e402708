// Package manager supervises generation for the single loaded model. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, simple getters, Shutdown.
//   - config.go: ManagerConfig and package defaults; New applies defaults.
//   - types.go: lifecycle states and the Store contract.
//   - errors.go: error types and helpers (IsInvalidRequest, IsTooBusy, ...).
//   - stream.go: Stream/Complete entry points and the per-run worker.
//   - cancel.go: table of in-flight runs and caller-initiated cancellation.
//   - persist.go: exactly-once hand-off of finished turns to the Store.
//   - history.go: history listing and export.
//   - status_report.go: Status for /status.
//   - metrics.go: Prometheus collectors for generation.
//   - events.go, eventpub_memory.go: lifecycle events.
//
// Each run executes on its own worker goroutine, never on the caller's. The
// caller receives a generate.Stream and reports a disconnect by closing it;
// Cancel and Shutdown cancel the worker's context instead.
package manager
