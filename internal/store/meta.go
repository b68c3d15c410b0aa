package store

import (
	"context"
	"fmt"
	"strconv"

	entsql "entgo.io/ent/dialect/sql"
)

// MetaRepo stores process-wide settings as string key/value pairs.
type MetaRepo struct {
	drv *entsql.Driver
}

// Get returns the value stored under key and whether it exists.
func (r *MetaRepo) Get(ctx context.Context, key string) (string, bool, error) {
	sel := builder().Select("value").From(entsql.Table(tableMeta)).
		Where(entsql.EQ("key", key)).Limit(1)
	var (
		value string
		found bool
	)
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		found = true
		return rows.Scan(&value)
	})
	if err != nil {
		return "", false, fmt.Errorf("get meta %q: %w", key, err)
	}
	return value, found, nil
}

// Int returns the integer stored under key and whether it exists.
func (r *MetaRepo) Int(ctx context.Context, key string) (int, bool, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("meta %q: %w", key, err)
	}
	return n, true, nil
}

// Set stores value under key, replacing any previous value.
func (r *MetaRepo) Set(ctx context.Context, key, value string) error {
	_, found, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if found {
		_, err = execStmt(ctx, r.drv, builder().Update(tableMeta).
			Set("value", value).
			Where(entsql.EQ("key", key)))
	} else {
		_, err = execStmt(ctx, r.drv, builder().Insert(tableMeta).
			Columns("key", "value").
			Values(key, value))
	}
	if err != nil {
		return fmt.Errorf("set meta %q: %w", key, err)
	}
	return nil
}

// All returns every stored setting.
func (r *MetaRepo) All(ctx context.Context) (map[string]string, error) {
	sel := builder().Select("key", "value").From(entsql.Table(tableMeta)).OrderBy("key")
	out := make(map[string]string)
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		out[k] = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list meta: %w", err)
	}
	return out, nil
}
