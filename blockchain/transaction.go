package blockchain

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"
)

// Transaction represents a command accepted by the ledger and later embedded in a block
type Transaction struct {
	ID        string         `json:"id"`
	Kind      TxKind         `json:"kind"`
	Key       string         `json:"key"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// GetID returns the id of a transaction
func (t *Transaction) GetID() string {
	return t.ID
}

// Clone returns a copy of the transaction whose payload shares no memory with the original.
func (t *Transaction) Clone() *Transaction {
	return &Transaction{
		ID:        t.ID,
		Kind:      t.Kind,
		Key:       t.Key,
		Payload:   CopyFields(t.Payload),
		CreatedAt: t.CreatedAt,
	}
}

/**
 * NormalizePayload re-encodes fields through JSON so the result holds only
 * map[string]any, []any, string, bool, nil and json.Number values and shares
 * no memory with the caller. Numbers keep their exact literal, so a block
 * hashes the same before and after it is archived.
 *
 * Returns:
 *   - The normalized copy (never nil), or an error if fields cannot be encoded
 */
func NormalizePayload(fields map[string]any) (map[string]any, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := decodeJSON(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make(map[string]any)
	}
	return out, nil
}

// decodeJSON unmarshals data keeping numbers as json.Number.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// CopyFields deep copies a normalized payload. Nested maps and []any are copied,
// any other value is immutable and assigned as is.
func CopyFields(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CopyFields(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}
