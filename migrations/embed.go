// Package migrations embeds the SQL schema for the credential ledger.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
