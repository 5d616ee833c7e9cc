// Package preflight provides readiness checks for the filesystem paths and
// services audiograb depends on.
//
// These checks run in two contexts:
//   - The serve command calls RunAll at startup and refuses to listen when a
//     directory is unusable.
//   - The deps CLI command and /healthz use CheckSystemDeps to report binaries.
package preflight
