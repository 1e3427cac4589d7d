package blockchain

import (
	"fmt"
	"sync"
)

/**
 * Blockchain represents the chain of blocks.
 * It includes the mining difficulty and miner used to seal blocks,
 * as well as concurrency protection using a mutex.
 */
type Blockchain struct {
	blocks     []*Block          // Ordered list of blocks in the chain
	byHash     map[string]uint64 // Block index by hash
	difficulty int               // Mining difficulty for new blocks (number of leading zeros required)
	miner      *Miner
	mutex      sync.RWMutex // Mutex to ensure thread-safe access to the blockchain
}

/**
 * NewBlockchain initializes a new blockchain with a mined genesis block.
 *
 * Parameters:
 *   - difficulty: Number of leading zeros every block hash must have
 *   - miner: Miner used to seal the genesis block and later blocks
 *
 * Returns:
 *   - A pointer to the newly created blockchain
 */
func NewBlockchain(difficulty int, miner *Miner) (*Blockchain, error) {
	if miner == nil {
		miner = NewMiner(0)
	}
	bc := &Blockchain{
		blocks:     make([]*Block, 0),
		byHash:     make(map[string]uint64),
		difficulty: difficulty,
		miner:      miner,
	}

	genesis, err := NewBlock(0, nil, GenesisPreviousHash)
	if err != nil {
		return nil, err
	}
	if _, err := miner.Seal(genesis, difficulty); err != nil {
		return nil, fmt.Errorf("failed to mine genesis block: %w", err)
	}
	bc.blocks = append(bc.blocks, genesis)
	bc.byHash[genesis.Hash] = 0

	return bc, nil
}

/**
 * CreateBlock builds an unmined block on top of the latest block in the chain.
 *
 * Returns:
 *   - A pointer to the newly created block
 */
func (bc *Blockchain) CreateBlock(transactions []*Transaction) (*Block, error) {
	bc.mutex.RLock()
	lastBlock := bc.blocks[len(bc.blocks)-1]
	bc.mutex.RUnlock()

	return NewBlock(lastBlock.Index+1, transactions, lastBlock.Hash)
}

// Mine seals a block with the chain's miner and current difficulty.
func (bc *Blockchain) Mine(block *Block) (MiningResult, error) {
	return bc.miner.Seal(block, bc.GetDifficulty())
}

/**
 * AddBlock adds a mined block to the blockchain after validating it
 * against the current tip.
 */
func (bc *Blockchain) AddBlock(block *Block) error {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if err := validateBlock(block, bc.blocks[len(bc.blocks)-1]); err != nil {
		return err
	}

	bc.blocks = append(bc.blocks, block)
	bc.byHash[block.Hash] = block.Index
	return nil
}

/**
 * GetLength returns the number of blocks in the blockchain.
 */
func (bc *Blockchain) GetLength() int {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()
	return len(bc.blocks)
}

// TipHash returns the hash of the latest block.
func (bc *Blockchain) TipHash() string {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()
	return bc.blocks[len(bc.blocks)-1].Hash
}

/**
 * GetDifficulty returns the mining difficulty for new blocks.
 */
func (bc *Blockchain) GetDifficulty() int {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()
	return bc.difficulty
}

// SetDifficulty changes the difficulty for blocks mined from now on.
// Blocks already in the chain keep the difficulty they were mined at.
func (bc *Blockchain) SetDifficulty(difficulty int) error {
	if difficulty < 0 || difficulty > HashLength {
		return fmt.Errorf("%w: %d", ErrInvalidDifficulty, difficulty)
	}
	bc.mutex.Lock()
	defer bc.mutex.Unlock()
	bc.difficulty = difficulty
	return nil
}

// GetBlock returns a summary of the block at index.
func (bc *Blockchain) GetBlock(index uint64) (BlockSummary, bool) {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()
	if index >= uint64(len(bc.blocks)) {
		return BlockSummary{}, false
	}
	return bc.blocks[index].Summary(), true
}

// GetBlockCopy returns a deep copy of the full block at index.
func (bc *Blockchain) GetBlockCopy(index uint64) (*Block, bool) {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()
	if index >= uint64(len(bc.blocks)) {
		return nil, false
	}
	return bc.blocks[index].Clone(), true
}

// GetBlockByHash returns a summary of the block with the given hash.
func (bc *Blockchain) GetBlockByHash(hash string) (BlockSummary, bool) {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()
	index, ok := bc.byHash[hash]
	if !ok {
		return BlockSummary{}, false
	}
	return bc.blocks[index].Summary(), true
}

/**
 * GetBlocks returns summaries of all blocks in the blockchain, genesis first.
 */
func (bc *Blockchain) GetBlocks() []BlockSummary {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	summaries := make([]BlockSummary, 0, len(bc.blocks))
	for _, b := range bc.blocks {
		summaries = append(summaries, b.Summary())
	}
	return summaries
}

// Transactions returns copies of every sealed transaction in chain order.
func (bc *Blockchain) Transactions() []*Transaction {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	var txs []*Transaction
	for _, b := range bc.blocks {
		for _, tx := range b.Transactions {
			txs = append(txs, tx.Clone())
		}
	}
	return txs
}

// Verify recomputes every block hash and checks the links between blocks.
func (bc *Blockchain) Verify() error {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()
	return VerifyBlocks(bc.blocks)
}

/**
 * VerifyBlocks validates an entire chain of blocks starting from the genesis block.
 *
 * Parameters:
 *   - blocks: Slice of blocks to validate, genesis first; each must meet the
 *     difficulty it records
 *
 * Returns:
 *   - nil if the chain is intact, otherwise an error wrapping ErrChainIntegrity
 *     or ErrInvalidPreviousHash
 */
func VerifyBlocks(blocks []*Block) error {
	if len(blocks) == 0 {
		return NewError(ErrorTypeIntegrity, "empty chain").Wrap(ErrChainIntegrity)
	}

	genesis := blocks[0]
	if genesis.Index != 0 || len(genesis.Transactions) != 0 {
		return NewError(ErrorTypeIntegrity, "invalid genesis block").WithBlock(0).Wrap(ErrChainIntegrity)
	}
	if genesis.PreviousHash != GenesisPreviousHash {
		return NewErrorf(ErrorTypeIntegrity, "genesis previous hash %q is not the sentinel", genesis.PreviousHash).
			WithBlock(0).Wrap(ErrInvalidPreviousHash)
	}
	if err := checkHash(genesis); err != nil {
		return err
	}

	for i := 1; i < len(blocks); i++ {
		if err := validateBlock(blocks[i], blocks[i-1]); err != nil {
			return err
		}
	}
	return nil
}

/**
 * validateBlock ensures a block is consistent with its predecessor.
 * It checks index continuity, previous hash linkage, hash integrity and proof of work.
 */
func validateBlock(block, previous *Block) error {
	if block.Index != previous.Index+1 {
		return NewErrorf(ErrorTypeIntegrity, "invalid index: expected %d, got %d", previous.Index+1, block.Index).
			WithBlock(block.Index).Wrap(ErrChainIntegrity)
	}
	if block.PreviousHash != previous.Hash {
		return NewErrorf(ErrorTypeIntegrity, "invalid previous hash: expected %s, got %s", previous.Hash, block.PreviousHash).
			WithBlock(block.Index).Wrap(ErrInvalidPreviousHash)
	}
	if len(block.Transactions) == 0 {
		return NewError(ErrorTypeIntegrity, "non-genesis block without transactions").
			WithBlock(block.Index).Wrap(ErrChainIntegrity)
	}
	return checkHash(block)
}

func checkHash(block *Block) error {
	expected := block.CalculateHash()
	if block.Hash != expected {
		return NewErrorf(ErrorTypeIntegrity, "invalid hash: expected %s, got %s", expected, block.Hash).
			WithBlock(block.Index).Wrap(ErrChainIntegrity)
	}
	if !MeetsDifficulty(block.Hash, block.Difficulty) {
		return NewErrorf(ErrorTypeIntegrity, "hash %s does not meet difficulty %d", block.Hash, block.Difficulty).
			WithBlock(block.Index).Wrap(ErrChainIntegrity)
	}
	return nil
}
