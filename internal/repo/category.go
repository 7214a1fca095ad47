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

// CategoryRepo reads and writes transaction categories.
type CategoryRepo struct {
	core *core
}

// Create assigns an id and timestamps and writes the category through
// the dual-write core.
func (r *CategoryRepo) Create(cat *schema.Category) error {
	if cat.ID == "" {
		cat.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = now
	}
	cat.UpdatedAt = now

	if err := cat.Validate(); err != nil {
		return fmt.Errorf("invalid category: %w", err)
	}

	doc, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("failed to encode category: %w", err)
	}
	if err := r.core.upsertLocal(schema.KindCategory, cat.ID, doc); err != nil {
		return err
	}

	r.core.flush(schema.KindCategory, schema.ActionCreate, cat.ID, doc)
	return nil
}

// Update replaces the category with the same id.
func (r *CategoryRepo) Update(cat *schema.Category) error {
	ok, err := r.core.exists(schema.KindCategory, cat.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("category %q not found", cat.ID)
	}

	cat.UpdatedAt = time.Now().UTC()
	if err := cat.Validate(); err != nil {
		return fmt.Errorf("invalid category: %w", err)
	}

	doc, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("failed to encode category: %w", err)
	}
	if err := r.core.upsertLocal(schema.KindCategory, cat.ID, doc); err != nil {
		return err
	}

	r.core.flush(schema.KindCategory, schema.ActionUpdate, cat.ID, doc)
	return nil
}

// Delete removes the category locally and schedules the remote delete.
func (r *CategoryRepo) Delete(id string) error {
	if err := r.core.removeLocal(schema.KindCategory, id); err != nil {
		return err
	}
	r.core.flush(schema.KindCategory, schema.ActionDelete, id, nil)
	return nil
}

// List returns the local snapshot sorted by name.
func (r *CategoryRepo) List() ([]*schema.Category, error) {
	records, err := r.core.load(schema.KindCategory)
	if err != nil {
		return nil, err
	}
	cats := make([]*schema.Category, 0, len(records))
	for _, raw := range records {
		var cat schema.Category
		if err := json.Unmarshal(raw, &cat); err != nil {
			r.core.logger.Printf("Warning: skipping bad category record: %v", err)
			continue
		}
		cats = append(cats, &cat)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return cats[i].Name < cats[j].Name
	})
	return cats, nil
}

// Get returns the category with the given id, or nil when absent.
func (r *CategoryRepo) Get(id string) (*schema.Category, error) {
	cats, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, cat := range cats {
		if cat.ID == id {
			return cat, nil
		}
	}
	return nil, nil
}

// Subscribe keeps the local snapshot fed from the remote change stream.
func (r *CategoryRepo) Subscribe(ctx context.Context) (func(), error) {
	return r.core.subscribe(ctx, schema.KindCategory)
}
