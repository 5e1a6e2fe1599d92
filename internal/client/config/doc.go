// Package config loads runtime configuration for the banking client.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags.
//
// Supported flags
//
//	-a string   host:port of the banking server
//	-d string   device code file
//	-t dur      connect timeout, e.g. "10s"
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations may be strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_addr": "127.0.0.1:12300",
//	  "device_file": "banking_device.txt",
//	  "dial_timeout": "10s",
//	  "log_level": "warn"
//	}
package config
