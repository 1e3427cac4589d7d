package blockchain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func newTestTx(id, key string, payload map[string]any) *Transaction {
	return &Transaction{
		ID:        id,
		Kind:      TxCreate,
		Key:       key,
		Payload:   payload,
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewBlock(t *testing.T) {
	payload := map[string]any{"drug": "Paracetamol", "qty": 1000}
	b, err := NewBlock(1, []*Transaction{newTestTx("tx-1", "batch001", payload)}, GenesisPreviousHash)
	if err != nil {
		t.Fatalf("NewBlock returned error: %v", err)
	}

	if b.Nonce != 0 {
		t.Errorf("Expected nonce 0, got %d", b.Nonce)
	}
	if b.Hash != b.CalculateHash() {
		t.Errorf("Initial hash %s does not match recomputation %s", b.Hash, b.CalculateHash())
	}
	if !IsValidHash(b.Hash) {
		t.Errorf("Hash %q is not a 64 character hex digest", b.Hash)
	}

	// The block owns a copy of the transactions.
	payload["qty"] = 1
	if b.Transactions[0].Payload["qty"] != 1000 {
		t.Errorf("Block transaction changed with caller's payload: %v", b.Transactions[0].Payload["qty"])
	}
}

func TestNewBlock_InvalidPreviousHash(t *testing.T) {
	testCases := []struct {
		name string
		hash string
	}{
		{"Empty", ""},
		{"TooShort", "0"},
		{"TooLong", GenesisPreviousHash + "0"},
		{"Uppercase", strings.Repeat("A", HashLength)},
		{"NonHex", strings.Repeat("z", HashLength)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBlock(1, nil, tc.hash)
			if !errors.Is(err, ErrInvalidHashFormat) {
				t.Errorf("Expected ErrInvalidHashFormat for %q, got %v", tc.hash, err)
			}
		})
	}
}

func TestCalculateHash_Canonical(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := map[string]any{}
	first["a"] = 1
	first["b"] = "two"
	first["c"] = map[string]any{"y": true, "x": nil}

	second := map[string]any{}
	second["c"] = map[string]any{"x": nil, "y": true}
	second["b"] = "two"
	second["a"] = 1

	b1 := &Block{Index: 3, CreatedAt: created, Transactions: []*Transaction{newTestTx("tx", "k", first)}, PreviousHash: GenesisPreviousHash, Nonce: 7}
	b2 := &Block{Index: 3, CreatedAt: created, Transactions: []*Transaction{newTestTx("tx", "k", second)}, PreviousHash: GenesisPreviousHash, Nonce: 7}

	if b1.CalculateHash() != b2.CalculateHash() {
		t.Fatalf("Semantically identical blocks hash differently")
	}

	// Same instant in another location must hash the same.
	b3 := *b1
	b3.CreatedAt = created.In(time.FixedZone("UTC+2", 2*60*60))
	if b3.CalculateHash() != b1.CalculateHash() {
		t.Errorf("Hash depends on the timestamp's location")
	}
}

func TestCalculateHash_CoversEveryField(t *testing.T) {
	base := &Block{
		Index:        1,
		CreatedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Transactions: []*Transaction{newTestTx("tx-1", "k", map[string]any{"v": 1})},
		PreviousHash: GenesisPreviousHash,
	}
	baseHash := base.CalculateHash()

	mutations := map[string]func(b *Block){
		"Index":        func(b *Block) { b.Index = 2 },
		"CreatedAt":    func(b *Block) { b.CreatedAt = b.CreatedAt.Add(time.Nanosecond) },
		"Transactions": func(b *Block) { b.Transactions = []*Transaction{newTestTx("tx-1", "k", map[string]any{"v": 2})} },
		"PreviousHash": func(b *Block) { b.PreviousHash = strings.Repeat("1", HashLength) },
		"Nonce":        func(b *Block) { b.Nonce = 1 },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			b := base.Clone()
			mutate(b)
			if b.CalculateHash() == baseHash {
				t.Errorf("Changing %s did not change the hash", name)
			}
		})
	}
}

func TestRecomputeHash(t *testing.T) {
	b, err := NewBlock(0, nil, GenesisPreviousHash)
	if err != nil {
		t.Fatal(err)
	}
	before := b.Hash
	b.Nonce = 42
	b.RecomputeHash()
	if b.Hash == before {
		t.Errorf("RecomputeHash did not pick up the new nonce")
	}
	if b.Hash != b.CalculateHash() {
		t.Errorf("Hash is stale after RecomputeHash")
	}
}

func TestSummary_IsDetached(t *testing.T) {
	b, err := NewBlock(1, []*Transaction{newTestTx("tx-1", "k", map[string]any{
		"status": "pending",
		"tags":   []any{"cold"},
	})}, GenesisPreviousHash)
	if err != nil {
		t.Fatal(err)
	}

	summary := b.Summary()
	summary.Transactions[0].Payload["status"] = "stolen"
	summary.Transactions[0].Payload["tags"].([]any)[0] = "hot"
	summary.Transactions = append(summary.Transactions, Transaction{ID: "extra"})

	if got := b.Transactions[0].Payload["status"]; got != "pending" {
		t.Errorf("Block payload changed through summary: %v", got)
	}
	if got := b.Transactions[0].Payload["tags"].([]any)[0]; got != "cold" {
		t.Errorf("Nested payload changed through summary: %v", got)
	}
	if len(b.Transactions) != 1 {
		t.Errorf("Block transactions changed through summary: %d", len(b.Transactions))
	}
	if b.Hash != b.CalculateHash() {
		t.Errorf("Block hash no longer valid after summary mutation")
	}
}

func TestBlockSurvivesJSONEncoding(t *testing.T) {
	b, err := NewBlock(1, []*Transaction{newTestTx("tx-1", "batch001", map[string]any{
		"drug": "Paracetamol",
		"qty":  1000,
	})}, GenesisPreviousHash)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewMiner(0).Seal(b, 1); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded Block
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.CalculateHash() != b.Hash {
		t.Errorf("Decoded block hashes to %s, want %s", decoded.CalculateHash(), b.Hash)
	}
}

func TestNormalizePayload(t *testing.T) {
	meta := map[string]string{"lot": "A"}
	tags := []int{1, 2}
	nested := []map[string]any{{"step": "packed"}}
	fields := map[string]any{"meta": meta, "tags": tags, "steps": nested, "serial": uint64(1<<63 + 1)}

	payload, err := NormalizePayload(fields)
	if err != nil {
		t.Fatalf("NormalizePayload failed: %v", err)
	}

	meta["lot"] = "B"
	tags[0] = 99
	nested[0]["step"] = "lost"

	gotMeta, ok := payload["meta"].(map[string]any)
	if !ok || gotMeta["lot"] != "A" {
		t.Errorf("Expected detached map[string]any meta, got %#v", payload["meta"])
	}
	gotTags, ok := payload["tags"].([]any)
	if !ok || gotTags[0] != json.Number("1") {
		t.Errorf("Expected detached []any tags, got %#v", payload["tags"])
	}
	gotSteps, ok := payload["steps"].([]any)
	if !ok || gotSteps[0].(map[string]any)["step"] != "packed" {
		t.Errorf("Expected detached steps, got %#v", payload["steps"])
	}
	if payload["serial"] != json.Number("9223372036854775809") {
		t.Errorf("Large integer not kept exactly: %#v", payload["serial"])
	}
}

func TestNormalizePayload_EdgeCases(t *testing.T) {
	payload, err := NormalizePayload(nil)
	if err != nil || payload == nil || len(payload) != 0 {
		t.Errorf("Expected an empty map for nil fields, got %#v, %v", payload, err)
	}

	if _, err := NormalizePayload(map[string]any{"ch": make(chan int)}); err == nil {
		t.Errorf("Expected an error for a payload that cannot be encoded")
	}
}

func TestCopyFields_NormalizedPayload(t *testing.T) {
	payload, err := NormalizePayload(map[string]any{"meta": map[string]string{"lot": "A"}, "tags": []int{1}})
	if err != nil {
		t.Fatal(err)
	}
	copied := CopyFields(payload)
	copied["meta"].(map[string]any)["lot"] = "B"
	copied["tags"].([]any)[0] = "x"

	if payload["meta"].(map[string]any)["lot"] != "A" || payload["tags"].([]any)[0] != json.Number("1") {
		t.Errorf("CopyFields shares memory with its source: %#v", payload)
	}
}
