// Package textutil provides small text helpers shared across packages.
//
// The primary use cases are:
//   - Collapsing whitespace runs before paragraph text is digested
//   - Sanitizing actor names and titles for safe filesystem use in cache
//     entry names
//   - Truncating long values for notifications and table display
package textutil
