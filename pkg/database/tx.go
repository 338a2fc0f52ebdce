package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// Executor is the query surface shared by *sqlx.DB and *sqlx.Tx.
type Executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// WithTx runs fn inside a transaction carried by the context.
// Repositories reached from fn pick the transaction up through Executor(ctx),
// so several repository calls commit or roll back together.
// A nested call joins the outer transaction.
//
//	err := db.WithTx(ctx, func(ctx context.Context) error {
//	    if err := schemas.Delete(ctx, id); err != nil { return err }
//	    return values.DeleteBySchema(ctx, id)
//	})
func (db *DB) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if getTx(ctx) != nil {
		return fn(ctx)
	}
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Executor returns the transaction in ctx, or the pool when there is none.
func (db *DB) Executor(ctx context.Context) Executor {
	if tx := getTx(ctx); tx != nil {
		return tx
	}
	return db.DB
}

func getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
