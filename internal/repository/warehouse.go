package repository

import (
	"context"
	"fmt"
)

// Tx exposes the writers bound to one open warehouse transaction.
type Tx interface {
	Dimensions() DimensionWriter
	Facts() FactWriter
	Lookups() LookupReader
}

// Warehouse opens transactions against the warehouse database.
type Warehouse interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Lookups() LookupReader
}

type warehouse struct {
	db TxBeginner
}

// NewWarehouse wraps a pool (or any TxBeginner).
func NewWarehouse(db TxBeginner) Warehouse {
	return &warehouse{db: db}
}

// InTx commits when fn returns nil and rolls back otherwise.
func (w *warehouse) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&warehouseTx{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (w *warehouse) Lookups() LookupReader {
	return NewLookupRepository(w.db)
}

type warehouseTx struct {
	db DBTX
}

func (t *warehouseTx) Dimensions() DimensionWriter { return NewDimensionRepository(t.db) }
func (t *warehouseTx) Facts() FactWriter           { return NewFactRepository(t.db) }
func (t *warehouseTx) Lookups() LookupReader       { return NewLookupRepository(t.db) }
