package schema

import (
	"encoding/json"
	"fmt"
)

// Kind identifies an entity collection.
type Kind int

const (
	// KindTransaction is a single ledger entry (one expense or income).
	KindTransaction Kind = iota
	// KindCategory is a spending/income category with an optional budget.
	KindCategory
	// KindSettings is the per-user settings singleton.
	KindSettings
)

// Kinds lists every entity kind in a stable order. Used by callers that
// need to iterate the full collection set (subscriptions, cache wipes).
var Kinds = []Kind{KindTransaction, KindCategory, KindSettings}

// String returns the wire/storage name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransaction:
		return "transaction"
	case KindCategory:
		return "category"
	case KindSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// SnapshotKey returns the local cache key holding this kind's
// materialized snapshot array.
func (k Kind) SnapshotKey() string {
	return "records/" + k.String()
}

// ParseKind converts a wire/storage name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "transaction":
		return KindTransaction, nil
	case "category":
		return KindCategory, nil
	case "settings":
		return KindSettings, nil
	default:
		return 0, fmt.Errorf("unknown entity kind: %q", s)
	}
}

// MarshalJSON encodes the kind as its wire name so persisted queue
// records stay readable.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON decodes a wire name into a Kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Action identifies the mutation type carried by a queued operation.
type Action int

const (
	// ActionCreate inserts a new entity document.
	ActionCreate Action = iota
	// ActionUpdate replaces an existing entity document.
	ActionUpdate
	// ActionDelete removes an entity document.
	ActionDelete
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the action as its wire name.
func (a Action) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes a wire name into an Action.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction converts a wire/storage name back to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "create":
		return ActionCreate, nil
	case "update":
		return ActionUpdate, nil
	case "delete":
		return ActionDelete, nil
	default:
		return 0, fmt.Errorf("unknown action: %q", s)
	}
}
