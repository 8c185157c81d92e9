package ui

import (
	"testing"
	"time"

	"github.com/seaasses/address-artisan/pkg/orchestrator"
	"github.com/seaasses/address-artisan/pkg/pathenum"
)

func TestNullIsHarmless(t *testing.T) {
	var n Null
	n.WorkbenchStarted("cpu")
	n.LogStatus(map[string]orchestrator.BenchStats{"cpu": {StartedAt: time.Now(), TotalGenerated: 10}})
	n.WorkbenchStopped("cpu", 10, time.Second)
	n.FoundAddress("cpu", "1abc", pathenum.Path{1, 2, 3, 4, 5, 6})
	n.FalsePositive("cpu", pathenum.Path{})
	n.DerivationError(nil)
	n.FinalStatus()
	n.StopRequested()
}

func TestConsoleLogStatusDoesNotPanic(t *testing.T) {
	c := NewConsole()
	stats := map[string]orchestrator.BenchStats{
		"cpu":  {StartedAt: time.Now().Add(-time.Second), TotalGenerated: 1000},
		"gpu0": {StartedAt: time.Now().Add(-time.Second), TotalGenerated: 5000},
	}
	c.LogStatus(stats)
	c.LogStatus(stats)
}

func TestFormatNumberGroupsThousands(t *testing.T) {
	cases := map[uint64]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		1234567:   "1,234,567",
	}
	for n, want := range cases {
		if got := FormatNumber(n); got != want {
			t.Fatalf("FormatNumber(%d) = %s, want %s", n, got, want)
		}
	}
}
