// Package services defines shared utilities consumed by the scan pipeline
// components.
//
// Key responsibilities:
//   - Context helpers that stamp scan session IDs and the scanned directory
//     for logging.
//   - Structured error markers plus the Wrap helper so every failure in the
//     pipeline (build, spawn, engine execution, parsing, deletion) can be
//     classified with errors.Is and reported distinctly to callers.
//
// Use these helpers when wiring new pipeline logic so error classification and
// log correlation stay uniform.
package services
