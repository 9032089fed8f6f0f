// Package clients holds the static registry of OAuth clients the gateway
// exchanges codes for.
//
// The registry is built once at startup from a configuration file and is
// read-only afterwards, so lookups need no locking. A lookup miss is a normal
// outcome: client identifiers arrive as untrusted path segments.
//
// # Configuration File
//
// The file is YAML. The JSON layout used by earlier deployments is accepted
// unchanged:
//
//	{
//	  "oauth_host": "github.com",
//	  "oauth_path": "/login/oauth/access_token",
//	  "clients": {
//	    "default": {"client_id": "abc123", "client_secret": "s3cr3t"}
//	  }
//	}
//
// GATEKEEPER_OAUTH_HOST and GATEKEEPER_OAUTH_PATH override the provider
// location from the file.
package clients
