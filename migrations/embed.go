// Package migrations carries the SQL schema files. They are compiled into
// the binary so a deployment never depends on a migrations directory being
// present next to the executable.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
