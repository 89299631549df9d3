// Package services defines shared utilities consumed by the scene renderer
// and the provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp scene digests, paragraph positions, stage
//     names, and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper, and the disposition
//     classifier that decides whether a failure drops a paragraph, fails the
//     scene, or aborts the run without inspecting error strings.
//
// Use these helpers when wiring new provider logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
