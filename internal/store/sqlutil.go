package store

import (
	"context"
	"database/sql"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// builder returns a statement builder for the SQLite dialect.
func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// queryRows runs a select and calls scan once per row.
func queryRows(ctx context.Context, q dialect.ExecQuerier, b entsql.Querier, scan func(*entsql.Rows) error) error {
	query, args := b.Query()
	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// queryInt runs a select returning a single integer, such as a count.
func queryInt(ctx context.Context, q dialect.ExecQuerier, b entsql.Querier) (int, error) {
	var n sql.NullInt64
	err := queryRows(ctx, q, b, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	return int(n.Int64), err
}

// execStmt runs an insert, update or delete.
func execStmt(ctx context.Context, q dialect.ExecQuerier, b entsql.Querier) (sql.Result, error) {
	query, args := b.Query()
	var res sql.Result
	if err := q.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// insertID runs an insert and returns the new row id.
func insertID(ctx context.Context, q dialect.ExecQuerier, b entsql.Querier) (int, error) {
	res, err := execStmt(ctx, q, b)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

// withTx runs fn inside a transaction, rolling back on error.
func withTx(ctx context.Context, drv *entsql.Driver, fn func(tx dialect.Tx) error) error {
	tx, err := drv.Tx(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullable(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func unix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

var now = func() time.Time { return time.Now().UTC() }
