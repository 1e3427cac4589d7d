package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"medchain_go/blockchain"
	"medchain_go/medchain"
	"medchain_go/utils"
)

// CreateRecordRequest is the body of POST /records.
type CreateRecordRequest struct {
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

// UpdateRecordRequest is the body of PATCH /records/{key}.
type UpdateRecordRequest struct {
	Fields map[string]any `json:"fields"`
}

// CreateBatchRequest is the body of POST /batches.
type CreateBatchRequest struct {
	BatchID      string `json:"batch_id"`
	DrugName     string `json:"drug_name"`
	Manufacturer string `json:"manufacturer"`
	Quantity     int    `json:"quantity"`
	Status       string `json:"status"`
}

// UpdateStatusRequest is the body of PATCH /batches/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// TxResponse reports the id of an accepted transaction.
type TxResponse struct {
	TxID string `json:"tx_id"`
}

// SealResponse reports the chain tip after a seal.
type SealResponse struct {
	Hash   string `json:"hash"`
	Length int    `json:"length"`
}

// VerifyResponse reports the outcome of a chain verification.
type VerifyResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string               `json:"error"`
	Type  blockchain.ErrorType `json:"type,omitempty"`
}

// PingHandler answers liveness probes
func (s *Server) PingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"length":     s.Ledger.Length(),
		"difficulty": s.Ledger.Difficulty(),
	})
}

// CreateRecordHandler submits a CREATE transaction
func (s *Server) CreateRecordHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), "")
		return
	}
	defer r.Body.Close()

	txID, err := s.Ledger.SubmitCreate(req.Key, req.Fields)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TxResponse{TxID: txID})
}

// UpdateRecordHandler submits an UPDATE transaction
func (s *Server) UpdateRecordHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), "")
		return
	}
	defer r.Body.Close()

	txID, err := s.Ledger.SubmitUpdate(key, req.Fields)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TxResponse{TxID: txID})
}

// SealHandler mines the pending pool into a block
func (s *Server) SealHandler(w http.ResponseWriter, r *http.Request) {
	hash, err := s.Ledger.Seal()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SealResponse{Hash: hash, Length: s.Ledger.Length()})
}

// CreateBatchHandler records a new drug batch
func (s *Server) CreateBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), "")
		return
	}
	defer r.Body.Close()

	txID, err := s.Registry.CreateDrugBatch(req.BatchID, req.DrugName, req.Manufacturer, req.Quantity, req.Status)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TxResponse{TxID: txID})
}

// UpdateBatchStatusHandler changes the status of a drug batch
func (s *Server) UpdateBatchStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), "")
		return
	}
	defer r.Body.Close()

	txID, err := s.Registry.UpdateBatchStatus(id, req.Status)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TxResponse{TxID: txID})
}

// GetBatchHandler returns the current state of a drug batch
func (s *Server) GetBatchHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	batch, ok := s.Registry.Batch(id)
	if !ok {
		writeError(w, http.StatusNotFound, "batch "+id+" not found", blockchain.ErrorTypeUnknownKey)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// ChainHandler returns every block, genesis first
func (s *Server) ChainHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Ledger.ChainView())
}

// BlockHandler returns a single block by index
func (s *Server) BlockHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid block index", blockchain.ErrorTypeInvalidArgument)
		return
	}
	block, ok := s.Ledger.Block(index)
	if !ok {
		writeError(w, http.StatusNotFound, "block not found", "")
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// BlockByHashHandler returns a single block by hash
func (s *Server) BlockByHashHandler(w http.ResponseWriter, r *http.Request) {
	block, ok := s.Ledger.BlockByHash(mux.Vars(r)["hash"])
	if !ok {
		writeError(w, http.StatusNotFound, "block not found", "")
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// StateHandler returns the whole world state
func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Ledger.WorldStateView())
}

// RecordHandler returns a single world state record
func (s *Server) RecordHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	rec, ok := s.Ledger.Record(key)
	if !ok {
		writeError(w, http.StatusNotFound, "key "+key+" not found", blockchain.ErrorTypeUnknownKey)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HistoryHandler returns every transaction that touched a key
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Ledger.History(mux.Vars(r)["key"]))
}

// MempoolHandler returns the pending transactions
func (s *Server) MempoolHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Ledger.PendingTransactions())
}

// VerifyHandler runs a full chain verification
func (s *Server) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Ledger.Verify(); err != nil {
		utils.LogError("VerifyHandler: chain verification failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, VerifyResponse{Valid: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Valid: true})
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, blockchain.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, blockchain.ErrUnknownKey):
		return http.StatusNotFound
	case errors.Is(err, blockchain.ErrMiningExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, blockchain.ErrChainIntegrity):
		return http.StatusInternalServerError
	case errors.Is(err, medchain.ErrEmptyBatchID),
		errors.Is(err, medchain.ErrNegativeQuantity),
		errors.Is(err, medchain.ErrEmptyStatus),
		blockchain.TypeOf(err) == blockchain.ErrorTypeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeLedgerError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		utils.LogError("Request failed: %v", err)
	}
	writeError(w, status, err.Error(), blockchain.TypeOf(err))
}

func writeError(w http.ResponseWriter, status int, message string, errorType blockchain.ErrorType) {
	writeJSON(w, status, ErrorResponse{Error: message, Type: errorType})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.LogError("Error encoding response: %v", err)
	}
}
