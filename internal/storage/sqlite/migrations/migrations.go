package migrations

import "embed"

// Files contains SQL migrations embedded into the binary.
//
// Files are applied in lexical order (001_init.sql, 002_...), each one
// exactly once.
//
//go:embed *.sql
var Files embed.FS
