// Package orchestrator owns the single atomic stop flag for a run, fans a
// search out across one workbench per device, drains their events over a
// shared channel, and authoritatively re-validates every PotentialMatch
// before it is reported as a confirmed find.
package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/seaasses/address-artisan/pkg/pathenum"
	"github.com/seaasses/address-artisan/pkg/prefix"
	"github.com/seaasses/address-artisan/pkg/validator"
	"github.com/seaasses/address-artisan/pkg/workbench"
)

// BenchStats is one device's running totals, kept for the periodic status
// line.
type BenchStats struct {
	StartedAt      time.Time
	TotalGenerated uint64
}

// FoundAddress is one confirmed match, ready for CSV output at shutdown.
// Path's first two elements are the seed0/seed1 the owning workbench drew
// for its run, so no separate seed fields are needed.
type FoundAddress struct {
	Address string
	Kind    prefix.AddressKind
	Prefix  string
	Path    pathenum.Path
}

// UI is everything the orchestrator reports to the outside world. A
// terminal implementation lives in internal/ui; internal/ui's null backend
// is a no-op used by tests that exercise the orchestrator without one.
type UI interface {
	WorkbenchStarted(benchID string)
	LogStatus(stats map[string]BenchStats)
	WorkbenchStopped(benchID string, totalGenerated uint64, elapsed time.Duration)
	FoundAddress(benchID, address string, path pathenum.Path)
	FalsePositive(benchID string, path pathenum.Path)
	DerivationError(err error)
	FinalStatus()
	StopRequested()
}

const logStatusInterval = 3 * time.Second

// Orchestrator is the only component that inspects the stop flag beyond
// the workbenches, and the only one that writes to the UI.
type Orchestrator struct {
	prefixes []*prefix.Prefix
	quota    int

	validator *validator.Validator
	ui        UI

	events   chan workbench.Event
	stop     chan struct{}
	stopOnce sync.Once

	found []FoundAddress
}

// New builds an Orchestrator for the given prefixes and match quota (0
// means unbounded).
func New(xpubStr string, prefixes []*prefix.Prefix, quota int, ui UI) (*Orchestrator, error) {
	v, err := validator.New(xpubStr)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return &Orchestrator{
		prefixes:  prefixes,
		quota:     quota,
		validator: v,
		ui:        ui,
		events:    make(chan workbench.Event, 256),
		stop:      make(chan struct{}),
	}, nil
}

// StopSignal is the channel every spawned workbench selects on to detect
// shutdown.
func (o *Orchestrator) StopSignal() chan struct{} { return o.stop }

// Events is the channel every spawned workbench sends its events on.
func (o *Orchestrator) Events() chan<- workbench.Event { return o.events }

// RequestStop closes the stop channel, if it has not been closed already.
// Safe to call from a signal handler concurrently with Run.
func (o *Orchestrator) RequestStop() {
	o.stopOnce.Do(func() { close(o.stop) })
}

// Run drains events until every one of deviceCount workbenches has
// reported Stopped, and returns every confirmed match found along the
// way. It is not safe to call concurrently with itself.
func (o *Orchestrator) Run(deviceCount int) []FoundAddress {
	stats := make(map[string]BenchStats)
	running := deviceCount
	lastLog := time.Now()

	for running > 0 {
		e := <-o.events
		switch e.Kind {
		case workbench.EventStarted:
			o.handleStarted(e, stats)
		case workbench.EventProgress:
			o.handleProgress(e, stats, &lastLog)
		case workbench.EventPotentialMatch:
			o.handlePotentialMatch(e)
		case workbench.EventStopped:
			o.handleStopped(e)
			running--
		}
	}

	o.ui.FinalStatus()
	return o.found
}

func (o *Orchestrator) handleStarted(e workbench.Event, stats map[string]BenchStats) {
	stats[e.BenchID] = BenchStats{StartedAt: e.Timestamp}
	o.ui.WorkbenchStarted(e.BenchID)
}

func (o *Orchestrator) handleProgress(e workbench.Event, stats map[string]BenchStats, lastLog *time.Time) {
	s := stats[e.BenchID]
	s.TotalGenerated += e.AddressesGenerated
	stats[e.BenchID] = s

	if time.Since(*lastLog) >= logStatusInterval {
		o.ui.LogStatus(stats)
		*lastLog = time.Now()
	}
}

func (o *Orchestrator) handlePotentialMatch(e workbench.Event) {
	if e.PrefixID < 0 || e.PrefixID >= len(o.prefixes) {
		o.ui.DerivationError(fmt.Errorf("orchestrator: prefix id %d out of range", e.PrefixID))
		return
	}
	p := o.prefixes[e.PrefixID]

	ok, addr, err := o.validator.Confirm(e.Path, p)
	if err != nil {
		o.ui.DerivationError(fmt.Errorf("orchestrator: %w", err))
		return
	}
	if !ok {
		o.ui.FalsePositive(e.BenchID, e.Path)
		return
	}

	o.found = append(o.found, FoundAddress{Address: addr, Kind: p.Kind, Prefix: p.Literal, Path: e.Path})
	o.ui.FoundAddress(e.BenchID, addr, e.Path)

	if o.quota > 0 && len(o.found) >= o.quota {
		o.ui.StopRequested()
		o.RequestStop()
	}
}

func (o *Orchestrator) handleStopped(e workbench.Event) {
	o.ui.WorkbenchStopped(e.BenchID, e.TotalGenerated, e.Elapsed)
}
