package blockchain

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"medchain_go/utils"
)

// Database keys prefixes for better organization
const (
	blockHashKeyPrefix  = "blockhash_"  // Prefix for accessing blocks by hash
	blockIndexKeyPrefix = "blockindex_" // Prefix for accessing blocks by index
	blockHeightKey      = "height"      // Key for the current blockchain height
	stateKeyPrefix      = "state_"      // Prefix for world state snapshots
)

// BlockchainDB archives sealed blocks and world state snapshots.
// The ledger never reads it back; it exists for downstream consumers and audits.
type BlockchainDB struct {
	db        *leveldb.DB
	batchLock sync.Mutex
	path      string
}

// NewBlockchainDB creates a new database connection
func NewBlockchainDB(dataDir string) (*BlockchainDB, error) {
	dbPath := filepath.Join(dataDir, "blockchain")

	options := &opt.Options{
		BlockCacheCapacity:  8 * 1024 * 1024, // 8MB block cache
		WriteBuffer:         4 * 1024 * 1024, // 4MB write buffer
		CompactionTableSize: 2 * 1024 * 1024, // 2MB compaction table size
	}

	db, err := leveldb.OpenFile(dbPath, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open blockchain database: %w", err)
	}

	utils.LogInfo("Blockchain archive initialized at: %s", dbPath)

	return &BlockchainDB{
		db:   db,
		path: dbPath,
	}, nil
}

// Path returns the on-disk location of the archive.
func (bdb *BlockchainDB) Path() string {
	return bdb.path
}

// Close closes the database connection
func (bdb *BlockchainDB) Close() error {
	if bdb.db != nil {
		return bdb.db.Close()
	}
	return nil
}

// SaveBlock stores a block by index and by hash, and advances the height.
func (bdb *BlockchainDB) SaveBlock(block *Block) error {
	blockData, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("failed to marshal block: %w", err)
	}

	bdb.batchLock.Lock()
	defer bdb.batchLock.Unlock()

	batch := new(leveldb.Batch)
	batch.Put([]byte(fmt.Sprintf("%s%d", blockIndexKeyPrefix, block.Index)), blockData)
	batch.Put([]byte(fmt.Sprintf("%s%s", blockHashKeyPrefix, block.Hash)), blockData)

	currentHeight, found, err := bdb.GetBlockchainHeight()
	if err != nil {
		return err
	}
	if !found || block.Index > currentHeight {
		batch.Put([]byte(blockHeightKey), []byte(fmt.Sprintf("%d", block.Index)))
	}

	if err := bdb.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to save block to database: %w", err)
	}

	utils.LogDebug("Block %d archived with hash %s", block.Index, block.Hash)
	return nil
}

// GetBlockByIndex retrieves a block by its index
func (bdb *BlockchainDB) GetBlockByIndex(index uint64) (*Block, error) {
	return bdb.getBlock(fmt.Sprintf("%s%d", blockIndexKeyPrefix, index), fmt.Sprintf("index %d", index))
}

// GetBlockByHash retrieves a block by its hash
func (bdb *BlockchainDB) GetBlockByHash(hash string) (*Block, error) {
	return bdb.getBlock(fmt.Sprintf("%s%s", blockHashKeyPrefix, hash), fmt.Sprintf("hash %s", hash))
}

func (bdb *BlockchainDB) getBlock(key, desc string) (*Block, error) {
	data, err := bdb.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, fmt.Errorf("block with %s not found", desc)
		}
		return nil, fmt.Errorf("failed to retrieve block: %w", err)
	}

	var block Block
	if err := decodeJSON(data, &block); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block: %w", err)
	}
	return &block, nil
}

// GetBlockchainHeight returns the index of the highest archived block.
// found is false while the archive is empty.
func (bdb *BlockchainDB) GetBlockchainHeight() (height uint64, found bool, err error) {
	data, err := bdb.db.Get([]byte(blockHeightKey), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to retrieve blockchain height: %w", err)
	}

	if _, err := fmt.Sscanf(string(data), "%d", &height); err != nil {
		return 0, false, fmt.Errorf("failed to parse blockchain height: %w", err)
	}
	return height, true, nil
}

// GetAllBlocks retrieves all archived blocks, genesis first.
func (bdb *BlockchainDB) GetAllBlocks() ([]*Block, error) {
	blocks := make([]*Block, 0)

	height, found, err := bdb.GetBlockchainHeight()
	if err != nil || !found {
		return blocks, err
	}

	for i := uint64(0); i <= height; i++ {
		block, err := bdb.GetBlockByIndex(i)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// SaveState saves a JSON-encoded world state entry.
func (bdb *BlockchainDB) SaveState(key string, value any) error {
	valueData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal state value: %w", err)
	}

	if err := bdb.db.Put([]byte(stateKeyPrefix+key), valueData, nil); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// GetState decodes the state entry stored under key into v. found is false
// when the key has no entry.
func (bdb *BlockchainDB) GetState(key string, v any) (found bool, err error) {
	data, err := bdb.db.Get([]byte(stateKeyPrefix+key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to retrieve state: %w", err)
	}
	if err := decodeJSON(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal state %s: %w", key, err)
	}
	return true, nil
}

// StateKeys lists every key that has an archived state entry.
func (bdb *BlockchainDB) StateKeys() ([]string, error) {
	iter := bdb.db.NewIterator(util.BytesPrefix([]byte(stateKeyPrefix)), nil)
	defer iter.Release()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()[len(stateKeyPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("error iterating state: %w", err)
	}
	return keys, nil
}

// Reset deletes every archived entry.
func (bdb *BlockchainDB) Reset() error {
	bdb.batchLock.Lock()
	defer bdb.batchLock.Unlock()

	iter := bdb.db.NewIterator(nil, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("error iterating archive: %w", err)
	}
	if err := bdb.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to reset archive: %w", err)
	}
	return nil
}
