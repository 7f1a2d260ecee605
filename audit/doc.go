// Package audit is panelcore's append-only audit trail: the [Entry] model, the
// [Recorder] that appends entries, the [Store] backends that keep them, the
// [QueryEngine] that filters, pages and aggregates them, response redaction, and the
// CSV/JSON export renderer.
//
// # Ordering
//
// Entries are totally ordered by (CreatedAt, ID). The Recorder assigns both under a
// single lock, with CreatedAt truncated to microseconds and forced strictly
// increasing, so every backend (including Postgres timestamptz) preserves the order.
//
// # Architecture boundaries
//
// The query engine trusts its [QueryParams]: visibility scoping (unit, actor) is
// injected by the panelcore Engine before a query reaches this package.
//
// # What this package must NOT do
//
//   - Update or delete stored entries.
//   - Import panelcore or resolve caller identity.
//   - Let a storage failure in [Recorder.Record] escape as a panic.
package audit
