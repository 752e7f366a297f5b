// Package repokit provides the types repositories are written against
package repokit

import (
	"nhanes/internal/platform/store"
)

type (
	// Queryer is the read and write surface of a pool or a transaction
	Queryer = store.RowQuerier
	// TxRunner is a Queryer that can also open transactions
	TxRunner = store.TxRunner
	// Rows are the result set of a query
	Rows = store.Rows
	// Row is a single row result
	Row = store.Row
	// CommandTag is the result of a statement
	CommandTag = store.CommandTag
)
