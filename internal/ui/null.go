package ui

import (
	"time"

	"github.com/seaasses/address-artisan/pkg/orchestrator"
	"github.com/seaasses/address-artisan/pkg/pathenum"
)

// Null is a no-op orchestrator.UI, used by tests that drive an
// orchestrator without a terminal attached.
type Null struct{}

var _ orchestrator.UI = Null{}

func (Null) WorkbenchStarted(benchID string)                                  {}
func (Null) LogStatus(stats map[string]orchestrator.BenchStats)               {}
func (Null) WorkbenchStopped(benchID string, totalGenerated uint64, elapsed time.Duration) {}
func (Null) FoundAddress(benchID, address string, path pathenum.Path)         {}
func (Null) FalsePositive(benchID string, path pathenum.Path)                 {}
func (Null) DerivationError(err error)                                       {}
func (Null) FinalStatus()                                                    {}
func (Null) StopRequested()                                                  {}
