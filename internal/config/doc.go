// Package config handles loading and parsing the nudge configuration file.
//
// # Overview
//
// One TOML file configures both the editor (how it reaches the settings API,
// how long it waits before saving, where it logs) and the local dev server
// started by "nudge serve".
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/nudge/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing or blank, use defaults
//
// # Default Values
//
//   - API endpoint: 127.0.0.1:7490
//   - Quiet period: 350ms
//   - Request timeout: 5s
//   - Log level: info, text format, file ~/.local/state/nudge/nudge.log
//   - Grant ledger: ~/.config/nudge/grants.toml
//   - UI preferences: ~/.config/nudge/prefs.toml
//   - Server store: ~/.local/share/nudge/settings.toml, time zone UTC,
//     minute step 5, no latency, no injected failures
//
// # TOML Format
//
//	api_bind = "127.0.0.1:7490"
//	quiet_period = "350ms"
//	request_timeout = "5s"
//	abort_superseded = false
//	log_level = "info"
//	log_format = "text"
//	log_file = "~/.local/state/nudge/nudge.log"
//	grants_path = "~/.config/nudge/grants.toml"
//	prefs_path = "~/.config/nudge/prefs.toml"
//
//	[server]
//	listen = "127.0.0.1:7490"
//	store_path = "~/.local/share/nudge/settings.toml"
//	time_zone = "Europe/Oslo"
//	minute_step = 5
//	latency = "200ms"
//	fail_every = 0
//
// Durations use Go syntax. A zero or blank duration keeps the default. When
// server.listen is absent the server listens on api_bind.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//   - Invalid values; every bad key is reported in one multierr error
//
// Missing config files are NOT an error. nudge works without one.
package config
