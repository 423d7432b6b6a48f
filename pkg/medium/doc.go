// Package medium defines the durable key-value contract stores persist into,
// the record envelope written under each key, and the bundled backends.
//
// Responsibilities:
//   - Medium only gets/sets/removes opaque string values by key.
//   - Codec turns a Record (key, optional version, plain state, write metadata)
//     into that string and back.
//   - Typed decoding, version checks and default merging stay in the uistate
//     package; a Medium never interprets the state it carries.
//
// Backends:
//
//	Memory  - process-local map, the default for tests and ephemeral sessions
//	File    - one file per key under a directory, written via temp file + rename
//	SQLite  - single table keyed by store key, WAL mode, one connection
//
// Record layout (JSON codec):
//
//	{"key":"theme_store","version":2,"state":{"theme":"dark"},"write_id":"…","updated_at":"…"}
package medium
