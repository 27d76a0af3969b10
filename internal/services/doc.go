// Package services defines shared utilities consumed by the scan pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job sequence numbers, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so every pipeline failure
//     carries one classifiable cause (external tool, no match, catalog
//     request, incomplete metadata, ...).
//
// Use these helpers when wiring new stage logic so failures and log lines stay
// uniform across the pipeline.
package services
