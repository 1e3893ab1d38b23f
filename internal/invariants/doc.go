// Package invariants exposes whether expensive internal consistency checks are
// compiled in.
//
// Build with -tags invariants to enable them. Release builds compile every
// `if invariants.Enabled` block away, so hot paths pay nothing for the checks.
package invariants
