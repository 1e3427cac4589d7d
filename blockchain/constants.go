package blockchain

import "strings"

// TxKind represents the kind of command a transaction carries
type TxKind string

const (
	// TxCreate inserts a new record into the world state
	TxCreate TxKind = "CREATE"
	// TxUpdate merges field changes into an existing record
	TxUpdate TxKind = "UPDATE"
)

const (
	// HashLength is the length of a hex-encoded SHA-256 digest.
	HashLength = 64
	// DefaultDifficulty is the number of leading zeros required in a block hash.
	DefaultDifficulty = 2
	// DefaultMaxMiningIterations bounds the nonce search of a single block.
	DefaultMaxMiningIterations uint64 = 50_000_000
	// TargetChar is the character a mined hash must be prefixed with.
	TargetChar = '0'
)

// GenesisPreviousHash is the sentinel previous hash of the genesis block.
var GenesisPreviousHash = strings.Repeat("0", HashLength)
