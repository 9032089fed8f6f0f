// Package cli implements the gatekeeper command line: flag and environment
// configuration, process logging, and the serve, validate and version
// commands.
package cli
