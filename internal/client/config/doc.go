// Package config loads runtime configuration for the filedrop uploader.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the upload server
//	-w int      concurrent uploads
//	-r int      retries per file after the first attempt
//	-t int      per-attempt timeout (seconds)
//	-b int      initial retry backoff (milliseconds)
//	-m int      maximum retry backoff (seconds)
//	-v string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds. Absent keys keep their previous value:
//
//	{
//	  "server_url": "http://localhost:3002",
//	  "concurrency": 3,
//	  "max_retries": 3,
//	  "attempt_timeout": "30s",
//	  "backoff_base": "500ms",
//	  "backoff_max": "10s",
//	  "log_level": "warn"
//	}
package config
