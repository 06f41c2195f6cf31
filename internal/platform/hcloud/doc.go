// Package hcloud maps the compute operations onto the Hetzner Cloud API.
//
// Servers are exposed as instances, snapshots as images, SSH keys as key pairs
// and locations as regions. Page numbers travel as opaque NextToken strings.
// The API has no client tokens, so RunInstances stores the token in a server
// label and looks for it before creating anything. CopyImage has no Hetzner
// counterpart and is not registered.
//
// The hcloud-go client is built without its own retries; the dispatcher owns
// retry and backoff.
//
// # Example Usage
//
//	t := hcloud.NewTransport(token)
//	c := compute.New(dispatch.New(t, dispatch.WithConfig(dispatch.Config{Region: "fsn1"})))
//	out, err := c.DescribeInstances(ctx, nil)
package hcloud
