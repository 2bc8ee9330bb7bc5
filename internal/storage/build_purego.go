//go:build !cgo_sqlite

package storage

// This file is compiled by default. It uses a pure Go SQLite
// implementation that ships with FTS5 and JSON1 enabled.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
