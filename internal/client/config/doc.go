// Package config loads runtime configuration for the Gatekeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the gateway
//	-f string   session file path
//	-t int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "session_file": ".gatekeeper/session.json",
//	  "request_timeout": "10s"
//	}
//
// Keys missing from the file keep their defaults.
package config
