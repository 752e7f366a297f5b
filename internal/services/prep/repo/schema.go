package repo

import (
	"context"
	_ "embed"
	"strings"

	"nhanes/internal/modkit/repokit"
)

//go:embed schema.sql
var schema string

// Statements returns the ledger DDL split into single statements
func Statements() []string {
	var out []string
	for _, s := range strings.Split(schema, ";\n") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EnsureSchema creates the ledger tables when missing
func EnsureSchema(ctx context.Context, db repokit.TxRunner) error {
	return db.Tx(ctx, func(q repokit.Queryer) error {
		for _, stmt := range Statements() {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
