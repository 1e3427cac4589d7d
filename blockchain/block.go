package blockchain

import (
	"fmt"
	"time"
)

/**
 * Block represents a single block in the blockchain.
 * Index is the block's sequence number; the genesis block has index 0.
 * Only Nonce and Hash change after construction, and only while mining.
 */
type Block struct {
	Index        uint64         `json:"sequence_number"` // Position of the block in the chain
	CreatedAt    time.Time      `json:"created_at"`      // Time when the block was created (UTC)
	Transactions []*Transaction `json:"transactions"`    // Ordered batch of sealed transactions
	PreviousHash string         `json:"previous_hash"`   // Hash of the previous block in the chain
	Nonce        uint64         `json:"nonce"`           // Number used during mining to find a valid hash
	Hash         string         `json:"hash"`            // Current block's hash
	Difficulty   int            `json:"difficulty"`      // Difficulty the block was mined at, not hashed
}

// BlockSummary is a detached copy of a block for display and serialization.
type BlockSummary struct {
	Index        uint64        `json:"sequence_number"`
	CreatedAt    time.Time     `json:"created_at"`
	Transactions []Transaction `json:"transactions"`
	PreviousHash string        `json:"previous_hash"`
	Nonce        uint64        `json:"nonce"`
	Hash         string        `json:"hash"`
	Difficulty   int           `json:"difficulty"`
}

/**
 * NewBlock initializes a new block with nonce 0 and its initial hash.
 *
 * Parameters:
 *   - index: Position of the block in the blockchain
 *   - transactions: Ordered transactions to embed, copied into the block
 *   - previousHash: Hash of the last block in the chain
 *
 * Returns:
 *   - A pointer to the newly created block, or an error for a malformed previous hash
 */
func NewBlock(index uint64, transactions []*Transaction, previousHash string) (*Block, error) {
	if !IsValidHash(previousHash) {
		return nil, fmt.Errorf("%w: previous hash %q", ErrInvalidHashFormat, previousHash)
	}

	txs := make([]*Transaction, 0, len(transactions))
	for _, tx := range transactions {
		txs = append(txs, tx.Clone())
	}

	b := &Block{
		Index:        index,
		CreatedAt:    time.Now().UTC(),
		Transactions: txs,
		PreviousHash: previousHash,
		Nonce:        0,
	}
	b.RecomputeHash()
	return b, nil
}

// RecomputeHash refreshes Hash from the block's current fields, nonce included.
func (b *Block) RecomputeHash() {
	b.Hash = b.CalculateHash()
}

// Summary returns a copy of all block fields that shares no memory with the block.
func (b *Block) Summary() BlockSummary {
	txs := make([]Transaction, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		txs = append(txs, *tx.Clone())
	}
	return BlockSummary{
		Index:        b.Index,
		CreatedAt:    b.CreatedAt,
		Transactions: txs,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
		Hash:         b.Hash,
		Difficulty:   b.Difficulty,
	}
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	txs := make([]*Transaction, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		txs = append(txs, tx.Clone())
	}
	return &Block{
		Index:        b.Index,
		CreatedAt:    b.CreatedAt,
		Transactions: txs,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
		Hash:         b.Hash,
		Difficulty:   b.Difficulty,
	}
}
