package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries can run
// standalone or inside a transaction (bound via sqlutil.Run).
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// NewTx binds queries to an open transaction. It exists alongside New because
// transaction helpers need a constructor typed on *sql.Tx for inference.
func NewTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
