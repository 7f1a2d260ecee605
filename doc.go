// Package panelcore is the session, authorization and audit-trail core of a
// multi-tenant operations panel.
//
// Every privileged request passes through an [Engine] three times: once to learn
// who is calling ([Engine.VerifySession]), once to decide whether they may act
// ([Engine.HasPermission], [Engine.CanAccessUnit]) and once, after the domain
// handler commits, to record what happened ([Engine.Record]). The audit trail is
// read back through [Engine.QueryAudit] and [Engine.ExportAudit], which force the
// caller's unit scope and redact entries for the restricted tier.
//
// # Architecture boundaries
//
// panelcore is the public surface. Storage lives behind the session.Store and
// audit.Store interfaces and is injected through [Builder]; the permission table
// is a permission.Table. Domain modules call into panelcore and are never called
// by it.
//
// # What this package must NOT do
//
//   - Compare role names to grant access. The unrestricted bypass is the root bit
//     of the permission table.
//   - Update or delete audit entries.
//   - Fail a domain mutation because its audit entry could not be stored.
package panelcore
