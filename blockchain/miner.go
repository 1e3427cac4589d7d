package blockchain

import (
	"fmt"
	"strings"
)

// Miner seals blocks by proof-of-work.
type Miner struct {
	maxIterations uint64
}

// MiningResult describes a successful nonce search.
type MiningResult struct {
	Nonce      uint64
	Hash       string
	Iterations uint64
}

// NewMiner creates a miner that tries at most maxIterations nonces per block.
// Zero selects DefaultMaxMiningIterations.
func NewMiner(maxIterations uint64) *Miner {
	if maxIterations == 0 {
		maxIterations = DefaultMaxMiningIterations
	}
	return &Miner{maxIterations: maxIterations}
}

// MaxIterations returns the iteration guard of the miner.
func (m *Miner) MaxIterations() uint64 {
	return m.maxIterations
}

/**
 * Seal performs Proof-of-Work mining by scanning nonces upward from zero until
 * the resulting hash starts with a number of zeros equal to the difficulty.
 * The first match is the lowest satisfying nonce.
 *
 * Parameters:
 *   - b: The block to mine; only its Nonce, Hash and Difficulty are modified
 *   - difficulty: The number of leading zero characters required in the hash
 */
func (m *Miner) Seal(b *Block, difficulty int) (MiningResult, error) {
	if difficulty < 0 || difficulty > HashLength {
		return MiningResult{}, fmt.Errorf("%w: %d", ErrInvalidDifficulty, difficulty)
	}

	b.Difficulty = difficulty
	target := strings.Repeat(string(TargetChar), difficulty)
	prefix := b.hashPrefix()

	for i := uint64(0); i < m.maxIterations; i++ {
		b.Nonce = i
		b.Hash = hashWithNonce(prefix, i)
		if strings.HasPrefix(b.Hash, target) {
			return MiningResult{Nonce: b.Nonce, Hash: b.Hash, Iterations: i + 1}, nil
		}
	}

	return MiningResult{Iterations: m.maxIterations}, NewErrorf(ErrorTypeMining,
		"no nonce below %d satisfies difficulty %d", m.maxIterations, difficulty).
		WithBlock(b.Index).Wrap(ErrMiningExhausted)
}
