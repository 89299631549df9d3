// Package preflight provides readiness checks for the external services,
// binaries, and filesystem paths a render run depends on.
//
// These checks run in two contexts:
//   - The render command calls RunAll before parsing a script. If any check
//     fails, the run stops before a single provider credit is spent.
//   - The CLI "clapper status" command uses individual check functions
//     (CheckHeyGen, CheckDirectoryAccess) to display service health.
//
// Provider checks are gated by the configured cast -- a config whose actors
// never touch ElevenLabs is not asked for an ElevenLabs key.
package preflight
