package blockchain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// hashDelimiter separates the serialized fields of a block.
const hashDelimiter = "|"

/**
 * CalculateHash generates a SHA-256 hash of the block's content.
 * Fields are serialized in a fixed order; transactions are JSON encoded with
 * struct field order and sorted map keys so equal blocks always hash equally.
 */
func (b *Block) CalculateHash() string {
	return hashWithNonce(b.hashPrefix(), b.Nonce)
}

// hashPrefix serializes every hashed field except the nonce, which comes last
// so the miner can reuse the prefix across iterations.
func (b *Block) hashPrefix() string {
	txs := b.Transactions
	if txs == nil {
		txs = []*Transaction{}
	}
	txJSON, _ := json.Marshal(txs)

	var records []string
	records = append(records, strconv.FormatUint(b.Index, 10))
	records = append(records, formatTimestamp(b.CreatedAt))
	records = append(records, string(txJSON))
	records = append(records, b.PreviousHash)

	return strings.Join(records, hashDelimiter) + hashDelimiter
}

func hashWithNonce(prefix string, nonce uint64) string {
	h := sha256.New()
	h.Write([]byte(prefix))
	h.Write([]byte(strconv.FormatUint(nonce, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// IsValidHash reports whether s is a lowercase hex SHA-256 digest.
func IsValidHash(s string) bool {
	if len(s) != HashLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// MeetsDifficulty reports whether hash starts with difficulty target characters.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty < 0 || difficulty > len(hash) {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hash[i] != TargetChar {
			return false
		}
	}
	return true
}
