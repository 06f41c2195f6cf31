// Package apierr classifies failures of remote compute API calls into a stable
// taxonomy with a retry-eligibility verdict.
//
// Every error surfaced by the dispatcher is an [*Error] carrying a [Category]
// (client or service side), a [Kind], the remote request identifier when one
// was returned, and whether the request is known to have reached the service.
//
// # Classification order
//
//   - context cancellation and deadlines: ClientError/Cancelled
//   - transport failures (reset, refused, DNS, timeout): ClientError/Network
//   - request serialization failures: ClientError/Serialization
//   - protocol error responses (smithy, hcloud, [RemoteError]): ServiceError by code, then HTTP status
//   - anything else: ServiceError/Unknown, never retried
package apierr
