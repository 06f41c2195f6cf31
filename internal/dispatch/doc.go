// Package dispatch is the single data-driven call path every operation goes
// through.
//
// For each call the [Client] looks up the operation descriptor, settles the
// idempotency token, deduplicates through the idempotency tracker when the
// caller supplied a token, and runs the transport round trip under the retry
// engine. Each attempt waits for a limiter slot, and every failure is
// classified before the retry decision. Mutating operations that are neither
// token-idempotent nor replay-safe are retried only when the failed attempt
// provably never reached the service.
//
// Endpoint and region are pre-call configuration. They are fixed by the first
// call; changing them concurrently with calls is not supported.
package dispatch
