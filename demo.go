package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/pterm/pterm"

	"medchain_go/ledger"
	"medchain_go/medchain"
)

// runDemo records two drug batches, moves one through its statuses and prints
// the resulting chain and world state.
func runDemo(l *ledger.Ledger) error {
	pterm.DefaultHeader.WithFullWidth().Println("MedChain Blockchain Demo")

	registry := medchain.NewRegistry(l)
	steps := []func() error{
		func() error {
			_, err := registry.CreateDrugBatch("batch001", "Paracetamol", "Acme Pharma", 1000, "")
			return err
		},
		func() error {
			_, err := registry.CreateDrugBatch("batch002", "Ibuprofen", "Beta Pharma", 500, medchain.StatusWaiting)
			return err
		},
		seal(l),
		func() error {
			_, err := registry.UpdateBatchStatus("batch001", medchain.StatusWaiting)
			return err
		},
		seal(l),
		func() error {
			_, err := registry.UpdateBatchStatus("batch001", medchain.StatusSuccess)
			return err
		},
		seal(l),
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	pterm.DefaultSection.Println("Blockchain View")
	data := pterm.TableData{{"#", "Created", "Txs", "Nonce", "Previous", "Hash"}}
	for _, b := range l.ChainView() {
		data = append(data, []string{
			strconv.FormatUint(b.Index, 10),
			b.CreatedAt.Format("15:04:05.000"),
			strconv.Itoa(len(b.Transactions)),
			humanize.Comma(int64(b.Nonce)),
			short(b.PreviousHash),
			short(b.Hash),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	pterm.DefaultSection.Println("World State View")
	view, err := json.MarshalIndent(l.WorldStateView(), "", "  ")
	if err != nil {
		return err
	}
	pterm.Println(string(view))

	if err := l.Verify(); err != nil {
		pterm.Error.Printfln("Chain verification failed: %v", err)
		return err
	}
	pterm.Success.Printfln("Chain of %d blocks verified", l.Length())
	return nil
}

func seal(l *ledger.Ledger) func() error {
	return func() error {
		hash, err := l.Seal()
		if err != nil {
			return fmt.Errorf("seal: %w", err)
		}
		pterm.Info.Printfln("Sealed block %s", short(hash))
		return nil
	}
}

func short(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "…"
}
