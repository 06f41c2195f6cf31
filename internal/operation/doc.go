// Package operation holds the process-wide Operation Descriptor Table.
//
// A [Descriptor] is the single source of truth for how the dispatcher treats a
// named remote operation: whether it mutates, whether it accepts an idempotency
// token, whether it pages, whether it starts a long-running transition, and its
// retry budget. Descriptors are immutable; the table is built once from the
// embedded descriptors.yaml data file and is safe for concurrent reads.
//
// The per-operation flags in descriptors.yaml come from the providers' public
// API documentation (ClientToken support, NextToken pagination, asynchronous
// state transitions). Behavior is never special-cased at call sites.
package operation
