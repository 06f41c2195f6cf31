// Package handlers implements the business logic of the CLI commands.
//
// Every handler builds a Session from the global flags and the configuration
// file, calls the compute facade and renders the result as a table, JSON or
// YAML. Provider construction and terminal detection are package variables
// so tests can swap in a fake cloud.
package handlers
