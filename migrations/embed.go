// Package migrations embeds the goose SQL migrations for the owners and
// itineraries tables. The `migrate` command and the integration test
// TestMain functions both read from FS, so no migration path is needed at runtime.
package migrations

import "embed"

// FS holds every *.sql migration compiled into the binary.
//
//go:embed *.sql
var FS embed.FS
