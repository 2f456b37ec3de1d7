package sqlite

import (
	"context"
	"database/sql"
)

// withTx runs fn in a transaction, committing on success and rolling back on error
func (c *Cache) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
