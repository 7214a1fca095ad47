package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kessler/pocketbook/internal/schema"
)

// SettingsRepo reads and writes the per-user settings singleton.
// Settings has a fixed document id, so create and delete degenerate to
// update: Set always performs an upsert.
type SettingsRepo struct {
	core *core
}

// Get returns the current settings, falling back to defaults when the
// user has never saved any.
func (r *SettingsRepo) Get() (*schema.Settings, error) {
	records, err := r.core.load(schema.KindSettings)
	if err != nil {
		return nil, err
	}
	for _, raw := range records {
		var s schema.Settings
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s.ID == schema.SettingsID {
			return &s, nil
		}
	}
	return schema.DefaultSettings(), nil
}

// Set writes the settings document through the dual-write core.
func (r *SettingsRepo) Set(s *schema.Settings) error {
	s.ID = schema.SettingsID
	s.UpdatedAt = time.Now().UTC()

	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := r.core.upsertLocal(schema.KindSettings, s.ID, doc); err != nil {
		return err
	}

	r.core.flush(schema.KindSettings, schema.ActionUpdate, s.ID, doc)
	return nil
}

// Subscribe keeps the local snapshot fed from the remote change stream.
func (r *SettingsRepo) Subscribe(ctx context.Context) (func(), error) {
	return r.core.subscribe(ctx, schema.KindSettings)
}
