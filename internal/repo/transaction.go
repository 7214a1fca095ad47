package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kessler/pocketbook/internal/schema"
)

// TransactionRepo reads and writes ledger transactions.
type TransactionRepo struct {
	core *core
}

// Create assigns an id and timestamps, writes the transaction into the
// local snapshot, and hands the remote side to the dual-write core.
// The returned error reports only validation and local persistence
// failures; when Create returns nil the write is locally durable.
func (r *TransactionRepo) Create(tx *schema.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = now
	}

	if err := tx.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	doc, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}
	if err := r.core.upsertLocal(schema.KindTransaction, tx.ID, doc); err != nil {
		return err
	}

	r.core.flush(schema.KindTransaction, schema.ActionCreate, tx.ID, doc)
	return nil
}

// Update replaces the transaction with the same id.
func (r *TransactionRepo) Update(tx *schema.Transaction) error {
	ok, err := r.core.exists(schema.KindTransaction, tx.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("transaction %q not found", tx.ID)
	}

	tx.UpdatedAt = time.Now().UTC()
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	doc, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}
	if err := r.core.upsertLocal(schema.KindTransaction, tx.ID, doc); err != nil {
		return err
	}

	r.core.flush(schema.KindTransaction, schema.ActionUpdate, tx.ID, doc)
	return nil
}

// Delete removes the transaction from the local snapshot and schedules
// the remote delete. Deleting a missing id is a no-op locally but is
// still propagated, matching the remote store's idempotent delete.
func (r *TransactionRepo) Delete(id string) error {
	if err := r.core.removeLocal(schema.KindTransaction, id); err != nil {
		return err
	}
	r.core.flush(schema.KindTransaction, schema.ActionDelete, id, nil)
	return nil
}

// List returns the local snapshot ordered by occurrence date, newest
// first. Never blocks on the network.
func (r *TransactionRepo) List() ([]*schema.Transaction, error) {
	records, err := r.core.load(schema.KindTransaction)
	if err != nil {
		return nil, err
	}
	txs := make([]*schema.Transaction, 0, len(records))
	for _, raw := range records {
		var tx schema.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			r.core.logger.Printf("Warning: skipping bad transaction record: %v", err)
			continue
		}
		txs = append(txs, &tx)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].OccurredAt.After(txs[j].OccurredAt)
	})
	return txs, nil
}

// Get returns the transaction with the given id from the local
// snapshot, or nil when absent.
func (r *TransactionRepo) Get(id string) (*schema.Transaction, error) {
	txs, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, nil
}

// Subscribe keeps the local snapshot fed from the remote change stream
// until stop is called or ctx ends.
func (r *TransactionRepo) Subscribe(ctx context.Context) (func(), error) {
	return r.core.subscribe(ctx, schema.KindTransaction)
}
