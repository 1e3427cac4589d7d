// Package ledger ties the chain, the pending pool and the world state together.
// Submissions update the world state immediately; Seal moves the pending pool
// into a mined block.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"medchain_go/blockchain"
	"medchain_go/mempool"
	"medchain_go/state"
	"medchain_go/utils"
)

// Config holds the mining parameters of a ledger.
type Config struct {
	Difficulty          int
	MaxMiningIterations uint64
}

// DefaultConfig returns the settings the demo uses.
func DefaultConfig() Config {
	return Config{
		Difficulty:          blockchain.DefaultDifficulty,
		MaxMiningIterations: blockchain.DefaultMaxMiningIterations,
	}
}

// SealListener is notified after a block has been appended. committed is the
// world state produced by the sealed blocks up to and including block; effects
// of transactions still pending are not in it.
type SealListener func(block *blockchain.Block, committed map[string]state.Record)

// Ledger owns a chain, its pending pool and the world state.
type Ledger struct {
	mu        sync.Mutex // guards pool, world, committed, chain appends, lastTxAt and listeners
	sealMu    sync.Mutex // serializes seals so the tip cannot move while mining
	chain     *blockchain.Blockchain
	pool      *mempool.Mempool[*blockchain.Transaction]
	world     *state.WorldState // sealed and pending effects
	committed *state.WorldState // sealed effects only
	lastTxAt  time.Time
	listeners []SealListener
	newID     func() string
}

/**
 * New creates a ledger and mines its genesis block.
 *
 * Returns:
 *   - The ledger, or an error when the difficulty is unusable or the genesis
 *     block cannot be mined within the iteration guard
 */
func New(cfg Config) (*Ledger, error) {
	if cfg.Difficulty < 0 || cfg.Difficulty > blockchain.HashLength {
		return nil, fmt.Errorf("%w: %d", blockchain.ErrInvalidDifficulty, cfg.Difficulty)
	}

	miner := blockchain.NewMiner(cfg.MaxMiningIterations)
	chain, err := blockchain.NewBlockchain(cfg.Difficulty, miner)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		chain:     chain,
		pool:      mempool.NewMempool[*blockchain.Transaction](),
		world:     state.New(),
		committed: state.New(),
		newID:     uuid.NewString,
	}
	chainLength.Set(1)
	pendingTransactions.Set(0)
	utils.LogInfo("Ledger initialized with genesis block %s (difficulty %d, at most %d nonces per block)",
		chain.TipHash(), cfg.Difficulty, miner.MaxIterations())
	return l, nil
}

// SubmitCreate records a CREATE transaction for key and inserts fields into the world state.
func (l *Ledger) SubmitCreate(key string, fields map[string]any) (string, error) {
	payload, err := validateCommand(key, fields)
	if err != nil {
		submissionsRejectedTotal.WithLabelValues("invalid").Inc()
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.world.Has(key) {
		submissionsRejectedTotal.WithLabelValues("duplicate_key").Inc()
		return "", blockchain.NewError(blockchain.ErrorTypeDuplicateKey, "key already exists").
			WithKey(key).Wrap(blockchain.ErrDuplicateKey)
	}

	return l.accept(blockchain.TxCreate, key, payload)
}

// SubmitUpdate records an UPDATE transaction for key and merges changes into its record.
func (l *Ledger) SubmitUpdate(key string, changes map[string]any) (string, error) {
	payload, err := validateCommand(key, changes)
	if err != nil {
		submissionsRejectedTotal.WithLabelValues("invalid").Inc()
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.world.Has(key) {
		submissionsRejectedTotal.WithLabelValues("unknown_key").Inc()
		return "", blockchain.NewError(blockchain.ErrorTypeUnknownKey, "key does not exist").
			WithKey(key).Wrap(blockchain.ErrUnknownKey)
	}

	return l.accept(blockchain.TxUpdate, key, payload)
}

// accept builds the transaction, applies it and queues it. payload must already
// be normalized and owned by the ledger. Callers hold l.mu.
func (l *Ledger) accept(kind blockchain.TxKind, key string, payload map[string]any) (string, error) {
	tx := &blockchain.Transaction{
		ID:        l.newID(),
		Kind:      kind,
		Key:       key,
		Payload:   payload,
		CreatedAt: l.nextTimestamp(),
	}
	if l.pool.Contains(tx.ID) {
		submissionsRejectedTotal.WithLabelValues("duplicate_id").Inc()
		return "", blockchain.NewErrorf(blockchain.ErrorTypeInvalidArgument, "transaction id %s is already pending", tx.ID).
			WithKey(key)
	}

	if err := l.world.Apply(tx); err != nil {
		return "", err
	}
	if !l.pool.AddItem(tx) {
		return "", blockchain.NewErrorf(blockchain.ErrorTypeIntegrity, "transaction %s applied but not queued", tx.ID).
			WithKey(key)
	}

	transactionsSubmittedTotal.WithLabelValues(string(kind)).Inc()
	pendingTransactions.Set(float64(l.pool.GetSize()))
	utils.LogDebug("Accepted %s transaction %s for key %s", kind, tx.ID, key)
	return tx.ID, nil
}

// nextTimestamp returns the current time, never earlier than the previous transaction's.
func (l *Ledger) nextTimestamp() time.Time {
	now := time.Now().UTC()
	if now.Before(l.lastTxAt) {
		now = l.lastTxAt
	}
	l.lastTxAt = now
	return now
}

/**
 * Seal mines the pending pool into a new block and appends it to the chain.
 * With an empty pool the current tip hash is returned and nothing changes.
 * Mining happens outside the main lock, so submissions keep flowing; anything
 * submitted meanwhile stays pending for the next block.
 *
 * Returns:
 *   - The hash of the new tip, or an error wrapping ErrMiningExhausted in which
 *     case the block is discarded and the pool is left intact
 */
func (l *Ledger) Seal() (string, error) {
	l.sealMu.Lock()
	defer l.sealMu.Unlock()

	l.mu.Lock()
	pending := l.pool.GetPendingItems()
	if len(pending) == 0 {
		tip := l.chain.TipHash()
		l.mu.Unlock()
		return tip, nil
	}
	block, err := l.chain.CreateBlock(pending)
	l.mu.Unlock()
	if err != nil {
		return "", err
	}

	start := time.Now()
	result, err := l.chain.Mine(block)
	elapsed := time.Since(start)
	miningDurationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		miningExhaustedTotal.Inc()
		utils.LogError("Sealing block %d failed after %d iterations: %v", block.Index, result.Iterations, err)
		return "", err
	}
	miningIterations.Observe(float64(result.Iterations))

	l.mu.Lock()
	if err := l.chain.AddBlock(block); err != nil {
		l.mu.Unlock()
		return "", fmt.Errorf("failed to append block %d: %w", block.Index, err)
	}
	l.pool.RemoveFirst(len(pending))
	for _, tx := range block.Transactions {
		if err := l.committed.Apply(tx); err != nil {
			utils.LogError("Sealed transaction %s does not apply to the committed state: %v", tx.ID, err)
		}
	}
	pendingTransactions.Set(float64(l.pool.GetSize()))
	chainLength.Set(float64(l.chain.GetLength()))
	listeners := append([]SealListener(nil), l.listeners...)
	var committed map[string]state.Record
	if len(listeners) > 0 {
		committed = l.committed.Snapshot()
	}
	l.mu.Unlock()

	blocksSealedTotal.Inc()
	utils.LogInfo("Sealed block %d with %d transactions, hash %s", block.Index, len(block.Transactions), block.Hash)
	utils.LogDebug("Block %d: nonce %d found after %d iterations in %s", block.Index, result.Nonce, result.Iterations, elapsed)

	for _, listener := range listeners {
		listener(block.Clone(), committed)
	}
	return block.Hash, nil
}

// OnSeal registers a listener called after every successful seal.
func (l *Ledger) OnSeal(listener SealListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, listener)
}

// ChainView returns detached summaries of every block, genesis first.
func (l *Ledger) ChainView() []blockchain.BlockSummary {
	return l.chain.GetBlocks()
}

// WorldStateView returns an independent copy of the world state.
func (l *Ledger) WorldStateView() map[string]state.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.world.Snapshot()
}

// Record returns a copy of the record stored under key.
func (l *Ledger) Record(key string) (state.Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.world.Get(key)
}

// Tip returns the hash of the latest block.
func (l *Ledger) Tip() string {
	return l.chain.TipHash()
}

// Length returns the number of blocks in the chain.
func (l *Ledger) Length() int {
	return l.chain.GetLength()
}

// Difficulty returns the proof-of-work difficulty of the chain.
func (l *Ledger) Difficulty() int {
	return l.chain.GetDifficulty()
}

// SetDifficulty changes the difficulty of future seals, for instance to retry
// after ErrMiningExhausted. It waits for a running seal to finish.
func (l *Ledger) SetDifficulty(difficulty int) error {
	l.sealMu.Lock()
	defer l.sealMu.Unlock()
	if err := l.chain.SetDifficulty(difficulty); err != nil {
		return err
	}
	utils.LogInfo("Mining difficulty set to %d", difficulty)
	return nil
}

// Block returns the block at index.
func (l *Ledger) Block(index uint64) (blockchain.BlockSummary, bool) {
	return l.chain.GetBlock(index)
}

// BlockByHash returns the block with the given hash.
func (l *Ledger) BlockByHash(hash string) (blockchain.BlockSummary, bool) {
	return l.chain.GetBlockByHash(hash)
}

// PendingTransactions returns copies of the pending transactions in submission order.
func (l *Ledger) PendingTransactions() []blockchain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return detach(l.pool.GetPendingItems())
}

// History returns every transaction touching key, sealed ones first, in order.
func (l *Ledger) History(key string) []blockchain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	var history []blockchain.Transaction
	for _, tx := range l.allTransactions() {
		if tx.Key == key {
			history = append(history, *tx)
		}
	}
	return history
}

/**
 * Verify checks the whole chain, that replaying the sealed transactions
 * reproduces the committed state, and that replaying sealed and pending
 * transactions reproduces the live world state.
 *
 * Returns:
 *   - nil if all checks pass, otherwise an error wrapping ErrChainIntegrity
 */
func (l *Ledger) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.chain.Verify(); err != nil {
		return err
	}

	sealed, err := replay(l.chain.Transactions())
	if err != nil {
		return err
	}
	if err := compareSnapshots(sealed.Snapshot(), l.committed.Snapshot()); err != nil {
		return err
	}

	all, err := replay(l.allTransactions())
	if err != nil {
		return err
	}
	return compareSnapshots(all.Snapshot(), l.world.Snapshot())
}

func replay(txs []*blockchain.Transaction) (*state.WorldState, error) {
	ws, err := state.Replay(txs)
	if err != nil {
		return nil, blockchain.NewError(blockchain.ErrorTypeIntegrity, "transactions do not replay").
			Wrap(fmt.Errorf("%w: %w", blockchain.ErrChainIntegrity, err))
	}
	return ws, nil
}

// allTransactions returns sealed then pending transactions. Callers hold l.mu.
func (l *Ledger) allTransactions() []*blockchain.Transaction {
	txs := l.chain.Transactions()
	for _, tx := range l.pool.GetPendingItems() {
		txs = append(txs, tx.Clone())
	}
	return txs
}

// compareSnapshots checks that got holds exactly the records of want.
func compareSnapshots(want, got map[string]state.Record) error {
	if len(want) != len(got) {
		return blockchain.NewErrorf(blockchain.ErrorTypeIntegrity, "world state has %d keys, replay has %d", len(got), len(want)).
			Wrap(blockchain.ErrChainIntegrity)
	}
	for key, rec := range want {
		other, ok := got[key]
		if !ok {
			return blockchain.NewError(blockchain.ErrorTypeIntegrity, "world state is missing a replayed key").
				WithKey(key).Wrap(blockchain.ErrChainIntegrity)
		}
		wantJSON, _ := json.Marshal(rec)
		gotJSON, _ := json.Marshal(other)
		if string(wantJSON) != string(gotJSON) {
			return blockchain.NewError(blockchain.ErrorTypeIntegrity, "world state diverges from chain").
				WithKey(key).Wrap(blockchain.ErrChainIntegrity)
		}
	}
	return nil
}

// validateCommand checks key and returns the normalized payload the ledger keeps.
func validateCommand(key string, fields map[string]any) (map[string]any, error) {
	if key == "" {
		return nil, blockchain.NewError(blockchain.ErrorTypeInvalidArgument, "key must not be empty")
	}
	payload, err := blockchain.NormalizePayload(fields)
	if err != nil {
		return nil, blockchain.NewError(blockchain.ErrorTypeInvalidArgument, "payload is not JSON-serializable").
			WithKey(key).Wrap(err)
	}
	return payload, nil
}

func detach(txs []*blockchain.Transaction) []blockchain.Transaction {
	out := make([]blockchain.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, *tx.Clone())
	}
	return out
}
