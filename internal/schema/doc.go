// Package schema provides the entity model shared by the local cache,
// the mutation queue, and the remote store client.
//
// Three entity kinds exist: transactions, categories, and settings.
// Each is stored locally as a JSON snapshot array (one array per kind)
// and remotely as one JSON document per entity instance. The Kind and
// Action enums form a closed variant space; the sync engine dispatches
// on (Kind, Action) pairs through a lookup table rather than matching
// on strings, so adding a new entity kind is a compile-time-checked
// change.
package schema
