package ledger

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"medchain_go/utils"
)

// AutoSealer seals a ledger on a cron schedule such as "@every 10s".
type AutoSealer struct {
	ledger *Ledger
	cron   *cron.Cron
	spec   string
}

// NewAutoSealer schedules periodic seals of l. Overlapping runs are skipped.
func NewAutoSealer(l *Ledger, spec string) (*AutoSealer, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	a := &AutoSealer{ledger: l, cron: c, spec: spec}
	if _, err := c.AddJob(spec, a); err != nil {
		return nil, fmt.Errorf("invalid auto-seal schedule %q: %w", spec, err)
	}
	return a, nil
}

// Run performs one seal. It implements cron.Job.
func (a *AutoSealer) Run() {
	before := a.ledger.Length()
	hash, err := a.ledger.Seal()
	if err != nil {
		utils.LogError("Automatic seal failed: %v", err)
		return
	}
	if a.ledger.Length() > before {
		utils.LogInfo("Automatic seal produced block %s", hash)
	}
}

// Start begins the schedule in the background.
func (a *AutoSealer) Start() {
	utils.LogInfo("Automatic sealing enabled (%s)", a.spec)
	a.cron.Start()
}

// Stop halts the schedule and returns a context done once a running seal finishes.
func (a *AutoSealer) Stop() context.Context {
	return a.cron.Stop()
}
