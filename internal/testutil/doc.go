// Package testutil provides testing utilities for the gatekeeper packages:
// a mock upstream OAuth token endpoint, OpenTelemetry collection helpers and
// small assertion helpers.
package testutil
