// Package medchain records drug batches on a ledger.
package medchain

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"medchain_go/state"
)

// Common batch statuses.
const (
	StatusPending   = "pending"
	StatusWaiting   = "waiting"
	StatusInTransit = "in_transit"
	StatusSuccess   = "success"
)

// Payload field names.
const (
	FieldBatchID      = "batch_id"
	FieldDrugName     = "drug_name"
	FieldManufacturer = "manufacturer"
	FieldQuantity     = "quantity"
	FieldStatus       = "status"
)

var (
	ErrEmptyBatchID     = errors.New("batch id must not be empty")
	ErrNegativeQuantity = errors.New("quantity must not be negative")
	ErrEmptyStatus      = errors.New("status must not be empty")
)

// Ledger is the part of the ledger the registry needs.
type Ledger interface {
	SubmitCreate(key string, fields map[string]any) (string, error)
	SubmitUpdate(key string, changes map[string]any) (string, error)
	Record(key string) (state.Record, bool)
}

// DrugBatch is the typed view of a batch record.
type DrugBatch struct {
	BatchID      string `json:"batch_id"`
	DrugName     string `json:"drug_name"`
	Manufacturer string `json:"manufacturer"`
	Quantity     int    `json:"quantity"`
	Status       string `json:"status"`
}

// Registry submits drug batch commands to a ledger.
type Registry struct {
	ledger Ledger
}

// NewRegistry creates a registry backed by l.
func NewRegistry(l Ledger) *Registry {
	return &Registry{ledger: l}
}

// CreateDrugBatch records a new batch. An empty status defaults to StatusPending.
func (r *Registry) CreateDrugBatch(batchID, drugName, manufacturer string, quantity int, status string) (string, error) {
	if batchID == "" {
		return "", ErrEmptyBatchID
	}
	if quantity < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegativeQuantity, quantity)
	}
	if status == "" {
		status = StatusPending
	}

	return r.ledger.SubmitCreate(batchID, map[string]any{
		FieldBatchID:      batchID,
		FieldDrugName:     drugName,
		FieldManufacturer: manufacturer,
		FieldQuantity:     quantity,
		FieldStatus:       status,
	})
}

// UpdateBatchStatus changes the status of an existing batch.
func (r *Registry) UpdateBatchStatus(batchID, status string) (string, error) {
	if batchID == "" {
		return "", ErrEmptyBatchID
	}
	if status == "" {
		return "", ErrEmptyStatus
	}
	return r.ledger.SubmitUpdate(batchID, map[string]any{
		FieldBatchID: batchID,
		FieldStatus:  status,
	})
}

// Batch returns the current state of a batch.
func (r *Registry) Batch(batchID string) (DrugBatch, bool) {
	rec, ok := r.ledger.Record(batchID)
	if !ok {
		return DrugBatch{}, false
	}
	return DrugBatch{
		BatchID:      batchID,
		DrugName:     stringField(rec.Fields, FieldDrugName),
		Manufacturer: stringField(rec.Fields, FieldManufacturer),
		Quantity:     intField(rec.Fields, FieldQuantity),
		Status:       stringField(rec.Fields, FieldStatus),
	}, true
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

// intField accepts the numeric types a record can hold.
func intField(fields map[string]any, name string) int {
	switch v := fields[name].(type) {
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
