// Package integration provides integration tests for the contacts API server.
// These tests boot the complete application against a Postgres container and
// exercise the HTTP surface end to end.
package integration
