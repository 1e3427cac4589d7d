package ledger

import (
	"fmt"

	"medchain_go/blockchain"
	"medchain_go/state"
	"medchain_go/utils"
)

// AttachArchive copies the current chain into db and keeps it updated after every
// seal. Whatever db held before is discarded: every ledger starts a new chain.
func (l *Ledger) AttachArchive(db *blockchain.BlockchainDB) error {
	if _, found, err := db.GetBlockchainHeight(); err != nil {
		return err
	} else if found {
		utils.LogWarn("Archive at %s holds a previous chain; resetting it", db.Path())
		if err := db.Reset(); err != nil {
			return err
		}
	}

	l.sealMu.Lock()
	defer l.sealMu.Unlock()

	l.mu.Lock()
	length := l.chain.GetLength()
	committed := l.committed.Snapshot()
	l.mu.Unlock()

	for i := 0; i < length; i++ {
		block, ok := l.chain.GetBlockCopy(uint64(i))
		if !ok {
			return fmt.Errorf("block %d missing while archiving", i)
		}
		if err := db.SaveBlock(block); err != nil {
			return err
		}
	}
	for key, rec := range committed {
		if err := db.SaveState(key, rec); err != nil {
			return err
		}
	}

	l.OnSeal(NewArchiveListener(db))
	return nil
}

// NewArchiveListener returns a SealListener that stores each sealed block and the
// committed records it touched in db. Archive failures are logged; they never
// undo a seal.
func NewArchiveListener(db *blockchain.BlockchainDB) SealListener {
	return func(block *blockchain.Block, committed map[string]state.Record) {
		if err := db.SaveBlock(block); err != nil {
			utils.LogError("Failed to archive block %d: %v", block.Index, err)
			return
		}
		for _, tx := range block.Transactions {
			rec, ok := committed[tx.Key]
			if !ok {
				continue
			}
			if err := db.SaveState(tx.Key, rec); err != nil {
				utils.LogError("Failed to archive record %s after block %d: %v", tx.Key, block.Index, err)
			}
		}
	}
}

/**
 * VerifyArchive audits an archive: the blocks must form a valid chain, each
 * must be reachable through its hash, and replaying their transactions must
 * reproduce the archived records exactly.
 *
 * Returns:
 *   - The number of blocks checked, and an error wrapping ErrChainIntegrity
 *     when the archive does not hold together
 */
func VerifyArchive(db *blockchain.BlockchainDB) (int, error) {
	blocks, err := db.GetAllBlocks()
	if err != nil {
		return 0, err
	}
	if err := blockchain.VerifyBlocks(blocks); err != nil {
		return len(blocks), err
	}

	var txs []*blockchain.Transaction
	for _, b := range blocks {
		byHash, err := db.GetBlockByHash(b.Hash)
		if err != nil || byHash.Index != b.Index {
			return len(blocks), blockchain.NewError(blockchain.ErrorTypeIntegrity, "hash index does not match the block").
				WithBlock(b.Index).Wrap(blockchain.ErrChainIntegrity)
		}
		txs = append(txs, b.Transactions...)
	}

	replayed, err := replay(txs)
	if err != nil {
		return len(blocks), err
	}
	archived, err := loadArchivedState(db)
	if err != nil {
		return len(blocks), err
	}
	if err := compareSnapshots(replayed.Snapshot(), archived); err != nil {
		return len(blocks), err
	}
	return len(blocks), nil
}

func loadArchivedState(db *blockchain.BlockchainDB) (map[string]state.Record, error) {
	keys, err := db.StateKeys()
	if err != nil {
		return nil, err
	}
	records := make(map[string]state.Record, len(keys))
	for _, key := range keys {
		var rec state.Record
		found, err := db.GetState(key, &rec)
		if err != nil {
			return nil, err
		}
		if found {
			records[key] = rec
		}
	}
	return records, nil
}
