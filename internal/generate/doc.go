// Package generate drives autoregressive text generation against a single
// shared model instance and streams the decoded text incrementally.
//
//   - interfaces.go: Tokenizer, Engine and the optional engine capabilities.
//   - handle.go: Handle, the exclusive lock around the shared engine.
//   - orchestrator.go: Orchestrator.Run, the decode loop and its stop rules.
//   - diff.go: watermark-based text diffing that turns decoded text into chunks.
//   - sink.go: Chunk, Sink/Stream and the bounded channel implementation.
//   - sampler.go: temperature / nucleus sampling with a fixed seed.
//   - errors.go: error kinds (encoding, decoding, inference, lock, persistence).
//
// Callers own cancellation: the context passed to Run is polled at the top of
// every decode step, and a consumer that goes away closes the Stream so the
// next push reports ErrSinkClosed.
package generate
