// Package testing provides test doubles shared across packages.
//
//   - FakeCloud: an in-memory compute service behind the transport contract,
//     with pagination, resource lifecycles, client-token deduplication and
//     failure injection
//   - MockTransport: a testify mock of transport.Transport
//   - InstanceBuilder / ImageBuilder: fluent builders for seed resources
//
// Usage:
//
//	cloud := testing.NewFakeCloud(testing.WithPageSize(2))
//	cloud.AddImage(testing.NewImageBuilder("img-1").Available().Build())
//	client := compute.New(dispatch.New(cloud))
package testing
