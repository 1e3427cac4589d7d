// Package state holds the world state: the latest record per key derived from
// accepted transactions.
package state

import (
	"fmt"
	"time"

	"medchain_go/blockchain"
)

// Record is the current value of one entity.
type Record struct {
	Fields      map[string]any `json:"fields"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	return Record{
		Fields:      blockchain.CopyFields(r.Fields),
		LastUpdated: r.LastUpdated,
	}
}

// WorldState maps entity keys to records. It is not safe for concurrent use;
// the ledger serializes access to it.
type WorldState struct {
	records map[string]*Record
}

// New creates an empty world state
func New() *WorldState {
	return &WorldState{records: make(map[string]*Record)}
}

// Has reports whether key exists
func (ws *WorldState) Has(key string) bool {
	_, ok := ws.records[key]
	return ok
}

// Insert adds a new record. Keys are never overwritten.
func (ws *WorldState) Insert(key string, fields map[string]any, at time.Time) error {
	if ws.Has(key) {
		return blockchain.NewError(blockchain.ErrorTypeDuplicateKey, "key already exists").
			WithKey(key).Wrap(blockchain.ErrDuplicateKey)
	}
	copied := blockchain.CopyFields(fields)
	if copied == nil {
		copied = make(map[string]any)
	}
	ws.records[key] = &Record{Fields: copied, LastUpdated: at}
	return nil
}

// Merge overwrites the given fields of an existing record and refreshes its
// timestamp. Fields not in changes are left untouched.
func (ws *WorldState) Merge(key string, changes map[string]any, at time.Time) error {
	rec, ok := ws.records[key]
	if !ok {
		return blockchain.NewError(blockchain.ErrorTypeUnknownKey, "key does not exist").
			WithKey(key).Wrap(blockchain.ErrUnknownKey)
	}
	for k, v := range blockchain.CopyFields(changes) {
		rec.Fields[k] = v
	}
	rec.LastUpdated = at
	return nil
}

// Apply applies the effect of a transaction.
func (ws *WorldState) Apply(tx *blockchain.Transaction) error {
	switch tx.Kind {
	case blockchain.TxCreate:
		return ws.Insert(tx.Key, tx.Payload, tx.CreatedAt)
	case blockchain.TxUpdate:
		return ws.Merge(tx.Key, tx.Payload, tx.CreatedAt)
	default:
		return blockchain.NewErrorf(blockchain.ErrorTypeInvalidArgument, "unsupported transaction kind %q", tx.Kind).
			WithKey(tx.Key)
	}
}

// Get returns a copy of the record stored under key
func (ws *WorldState) Get(key string) (Record, bool) {
	rec, ok := ws.records[key]
	if !ok {
		return Record{}, false
	}
	return rec.Clone(), true
}

// Snapshot returns an independent copy of every record.
func (ws *WorldState) Snapshot() map[string]Record {
	out := make(map[string]Record, len(ws.records))
	for k, rec := range ws.records {
		out[k] = rec.Clone()
	}
	return out
}

// Replay rebuilds a world state by applying txs in order.
func Replay(txs []*blockchain.Transaction) (*WorldState, error) {
	ws := New()
	for i, tx := range txs {
		if err := ws.Apply(tx); err != nil {
			return nil, fmt.Errorf("replay transaction %d (%s): %w", i, tx.ID, err)
		}
	}
	return ws, nil
}
