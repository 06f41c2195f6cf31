// Package config loads the computectl configuration: provider credentials,
// endpoint and region, retry and waiter budgets, backpressure limits and the
// cursor checkpoint store.
//
// Values come from a YAML file with ${VAR} expansion, then from COMPUTECTL_*
// environment variables, and are validated last.
package config
