// Package permission holds the static role/module/action permission table used by
// panelcore authorization checks.
//
// # Model
//
// Every "module.action" pair named by a rule is assigned a bit in a [Registry]. Each
// role's grants are a [Mask64] kept by the [RoleManager]. The highest bit is reserved
// as the root capability: the one role granted it (Unrestricted) passes every check,
// including checks for pairs the table never mentions. Anything else absent from the
// table is denied.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Tables are built once,
// frozen, and then only read.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import panelcore, session, or audit.
//   - Change grants after [NewTable] returns.
package permission
