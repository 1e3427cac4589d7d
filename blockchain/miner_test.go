package blockchain

import (
	"errors"
	"strings"
	"testing"
)

func TestMinerSeal_FindsLowestNonce(t *testing.T) {
	b, err := NewBlock(1, []*Transaction{newTestTx("tx-1", "batch001", map[string]any{"qty": 1000})}, GenesisPreviousHash)
	if err != nil {
		t.Fatal(err)
	}

	result, err := NewMiner(0).Seal(b, 2)
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}

	if b.Hash[:2] != "00" {
		t.Fatalf("Expected hash with prefix 00, got %s", b.Hash)
	}
	if b.Hash != b.CalculateHash() {
		t.Errorf("Sealed hash is stale")
	}
	if result.Nonce != b.Nonce || result.Hash != b.Hash || result.Iterations != b.Nonce+1 {
		t.Errorf("Unexpected mining result %+v for nonce %d", result, b.Nonce)
	}
	if b.Difficulty != 2 {
		t.Errorf("Expected recorded difficulty 2, got %d", b.Difficulty)
	}

	// Brute-force re-scan: no smaller nonce satisfies the prefix.
	probe := b.Clone()
	for n := uint64(0); n < b.Nonce; n++ {
		probe.Nonce = n
		if strings.HasPrefix(probe.CalculateHash(), "00") {
			t.Fatalf("Nonce %d also satisfies difficulty 2, miner returned %d", n, b.Nonce)
		}
	}
}

func TestMinerSeal_ZeroDifficulty(t *testing.T) {
	b, err := NewBlock(0, nil, GenesisPreviousHash)
	if err != nil {
		t.Fatal(err)
	}
	result, err := NewMiner(0).Seal(b, 0)
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}
	if b.Nonce != 0 || result.Iterations != 1 {
		t.Errorf("Expected nonce 0 after one iteration, got nonce %d after %d", b.Nonce, result.Iterations)
	}
}

func TestMinerSeal_Exhausted(t *testing.T) {
	b, err := NewBlock(4, []*Transaction{newTestTx("tx-1", "k", nil)}, GenesisPreviousHash)
	if err != nil {
		t.Fatal(err)
	}

	result, err := NewMiner(500).Seal(b, HashLength)
	if !errors.Is(err, ErrMiningExhausted) {
		t.Fatalf("Expected ErrMiningExhausted, got %v", err)
	}
	if TypeOf(err) != ErrorTypeMining {
		t.Errorf("Expected error type %s, got %s", ErrorTypeMining, TypeOf(err))
	}
	var le *LedgerError
	if !errors.As(err, &le) || le.BlockIndex == nil || *le.BlockIndex != 4 {
		t.Errorf("Expected error to reference block 4, got %v", err)
	}
	if result.Iterations != 500 {
		t.Errorf("Expected 500 iterations, got %d", result.Iterations)
	}
	if b.Hash != b.CalculateHash() {
		t.Errorf("Block hash is stale after exhausted search")
	}
}

func TestMinerSeal_InvalidDifficulty(t *testing.T) {
	for _, d := range []int{-1, HashLength + 1} {
		b, err := NewBlock(0, nil, GenesisPreviousHash)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := NewMiner(0).Seal(b, d); !errors.Is(err, ErrInvalidDifficulty) {
			t.Errorf("Difficulty %d: expected ErrInvalidDifficulty, got %v", d, err)
		}
	}
}

func TestNewMiner_DefaultGuard(t *testing.T) {
	if got := NewMiner(0).MaxIterations(); got != DefaultMaxMiningIterations {
		t.Errorf("Expected default guard %d, got %d", DefaultMaxMiningIterations, got)
	}
	if got := NewMiner(10).MaxIterations(); got != 10 {
		t.Errorf("Expected guard 10, got %d", got)
	}
}

func TestMeetsDifficulty(t *testing.T) {
	hash := "00ab" + strings.Repeat("f", HashLength-4)
	testCases := []struct {
		difficulty int
		expected   bool
	}{
		{0, true},
		{1, true},
		{2, true},
		{3, false},
		{-1, false},
		{HashLength + 1, false},
	}
	for _, tc := range testCases {
		if got := MeetsDifficulty(hash, tc.difficulty); got != tc.expected {
			t.Errorf("MeetsDifficulty(%d) = %v, want %v", tc.difficulty, got, tc.expected)
		}
	}
}
