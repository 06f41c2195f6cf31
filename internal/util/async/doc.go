// Package async runs independent tasks concurrently and collects every
// failure.
//
// The CLI uses [Run] to wait on several resources at once.
package async
