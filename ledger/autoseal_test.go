package ledger

import "testing"

func TestNewAutoSealer_InvalidSpec(t *testing.T) {
	l := newTestLedger(t, 0)
	if _, err := NewAutoSealer(l, "not a schedule"); err == nil {
		t.Errorf("Expected an error for an invalid schedule")
	}
}

func TestAutoSealer_Run(t *testing.T) {
	l := newTestLedger(t, 1)
	a, err := NewAutoSealer(l, "@every 1h")
	if err != nil {
		t.Fatalf("NewAutoSealer failed: %v", err)
	}

	a.Run()
	if l.Length() != 1 {
		t.Errorf("Run with an empty pool grew the chain")
	}

	if _, err := l.SubmitCreate("batch001", map[string]any{"status": "pending"}); err != nil {
		t.Fatal(err)
	}
	a.Run()
	if l.Length() != 2 || len(l.PendingTransactions()) != 0 {
		t.Errorf("Run did not seal the pending transaction")
	}
}

func TestAutoSealer_StartStop(t *testing.T) {
	l := newTestLedger(t, 0)
	a, err := NewAutoSealer(l, "@every 1h")
	if err != nil {
		t.Fatal(err)
	}
	a.Start()
	<-a.Stop().Done()
}
