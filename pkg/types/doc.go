// Package types holds the domain model shared across nestup: packages and
// their version requirements, discovered subprojects, and the per-subproject
// operation results the engine produces.
package types
