// Package preflight provides readiness checks for external services
// and filesystem paths that Scribe depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup before accepting work. A failed
//     check is reported early instead of failing the first run hours later.
//   - The CLI "scribe doctor" command uses the individual check functions
//     (CheckHuggingFace, CheckDirectoryAccess, CheckSystemDeps) to display
//     environment health.
//
// Each check is gated by its config toggle. Disabled features are skipped.
package preflight
