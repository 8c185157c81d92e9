// Package ui holds the interactive terminal implementation of
// orchestrator.UI, plus a no-op backend used by tests.
package ui

import (
	"fmt"
	"sort"
	"time"

	"github.com/seaasses/address-artisan/pkg/orchestrator"
	"github.com/seaasses/address-artisan/pkg/pathenum"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorPurple = "\033[35m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// PrintWelcomeBanner shows the welcome screen.
func PrintWelcomeBanner(version string) {
	fmt.Println()
	fmt.Printf("%s%s", ColorCyan, ColorBold)
	fmt.Println("  ╔════════════════════════════════════════════════════════════════════════════════╗")
	fmt.Println("  ║    █████╗ ██████╗ ██████╗ ██████╗ ███████╗███████╗███████╗    █████╗ ██████╗    ║")
	fmt.Println("  ║   ██╔══██╗██╔══██╗██╔══██╗██╔══██╗██╔════╝██╔════╝██╔════╝   ██╔══██╗██╔══██╗   ║")
	fmt.Println("  ║   ███████║██║  ██║██║  ██║██████╔╝█████╗  ███████╗███████╗   ███████║██████╔╝   ║")
	fmt.Println("  ║   ██╔══██║██║  ██║██║  ██║██╔══██╗██╔══╝  ╚════██║╚════██║   ██╔══██║██╔══██╗   ║")
	fmt.Println("  ║   ██║  ██║██████╔╝██████╔╝██║  ██║███████╗███████║███████║██╗██║  ██║██║  ██║   ║")
	fmt.Println("  ║   ╚═╝  ╚═╝╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚══════╝╚══════╝╚══════╝╚═╝╚═╝  ╚═╝╚═╝  ╚═╝   ║")
	fmt.Println("  ╠════════════════════════════════════════════════════════════════════════════════╣")
	fmt.Printf("  ║%s         Bitcoin Vanity Address Search %s• v%s%s                                   ║\n", ColorYellow, ColorDim, version, ColorCyan+ColorBold)
	fmt.Println("  ╚════════════════════════════════════════════════════════════════════════════════╝")
	fmt.Print(ColorReset)
	fmt.Println()
}

// Console is the interactive terminal implementation of orchestrator.UI.
// Create one with NewConsole; a zero Console erases the line above it on
// its first LogStatus call.
type Console struct {
	firstLogStatus bool
}

// NewConsole returns a Console ready to drive an orchestrator run.
func NewConsole() *Console {
	return &Console{firstLogStatus: true}
}

var _ orchestrator.UI = (*Console)(nil)

// WorkbenchStarted implements orchestrator.UI.
func (c *Console) WorkbenchStarted(benchID string) {
	fmt.Printf("    %s▸ %s started%s\n", ColorCyan, benchID, ColorReset)
}

// LogStatus implements orchestrator.UI. It prints one aggregate line
// across every running bench, erasing the previous status line first.
func (c *Console) LogStatus(stats map[string]orchestrator.BenchStats) {
	if c.firstLogStatus {
		c.firstLogStatus = false
		fmt.Println()
	} else {
		c.eraseLine()
	}

	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var totalGenerated uint64
	var earliestStart time.Time
	for _, id := range ids {
		s := stats[id]
		totalGenerated += s.TotalGenerated
		if earliestStart.IsZero() || s.StartedAt.Before(earliestStart) {
			earliestStart = s.StartedAt
		}
	}

	var rate float64
	if !earliestStart.IsZero() {
		elapsed := time.Since(earliestStart).Seconds()
		if elapsed > 0 {
			rate = float64(totalGenerated) / elapsed
		}
	}

	fmt.Printf("    %s[%s]%s %s generated across %d device(s)\n",
		ColorGreen+ColorBold, FormatHashRate(rate), ColorReset,
		FormatNumber(totalGenerated), len(ids))
}

// WorkbenchStopped implements orchestrator.UI.
func (c *Console) WorkbenchStopped(benchID string, totalGenerated uint64, elapsed time.Duration) {
	fmt.Printf("    %s▸ %s stopped%s after generating %s in %s\n",
		ColorDim, benchID, ColorReset, FormatNumber(totalGenerated), FormatDuration(elapsed))
}

// FoundAddress implements orchestrator.UI.
func (c *Console) FoundAddress(benchID, address string, path pathenum.Path) {
	fmt.Printf("\n    %s%s╔══════════════════════════════════════════════════════════╗%s\n", ColorGreen, ColorBold, ColorReset)
	fmt.Printf("    %s%s║               ✨ ADDRESS FOUND! ✨                       ║%s\n", ColorGreen, ColorBold, ColorReset)
	fmt.Printf("    %s%s╚══════════════════════════════════════════════════════════╝%s\n\n", ColorGreen, ColorBold, ColorReset)
	fmt.Printf("    %s₿ BITCOIN ADDRESS%s\n", ColorCyan+ColorBold, ColorReset)
	fmt.Printf("       %s%s%s\n\n", ColorGreen+ColorBold, address, ColorReset)
	fmt.Printf("    %s🔑 DERIVATION PATH%s\n", ColorPurple+ColorBold, ColorReset)
	fmt.Printf("       %sm/%d/%d/%d/%d/%d/%d%s\n", ColorYellow, path[0], path[1], path[2], path[3], path[4], path[5], ColorReset)
	fmt.Printf("    %s(found by %s)%s\n", ColorDim, benchID, ColorReset)
}

// FalsePositive implements orchestrator.UI.
func (c *Console) FalsePositive(benchID string, path pathenum.Path) {
	fmt.Printf("    %s(range hit from %s did not survive authoritative re-derivation)%s\n", ColorDim, benchID, ColorReset)
}

// DerivationError implements orchestrator.UI.
func (c *Console) DerivationError(err error) {
	fmt.Printf("    %s! %v%s\n", ColorRed, err, ColorReset)
}

// FinalStatus implements orchestrator.UI.
func (c *Console) FinalStatus() {
	fmt.Printf("\n    %sSearch finished.%s\n", ColorDim, ColorReset)
}

// StopRequested implements orchestrator.UI.
func (c *Console) StopRequested() {
	fmt.Printf("    %sMatch quota reached, stopping...%s\n", ColorYellow, ColorReset)
}

func (c *Console) eraseLine() {
	fmt.Print("\x1B[1A\x1B[2K")
}

// FormatHashRate formats hash rate nicely.
func FormatHashRate(rate float64) string {
	if rate >= 1000000 {
		return fmt.Sprintf("%.1fM/s", rate/1000000)
	}
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	return fmt.Sprintf("%.0f/s", rate)
}

// FormatNumber adds commas to large numbers.
func FormatNumber(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	result := make([]byte, 0, len(s)+(len(s)-1)/3)
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(ch))
	}
	return string(result)
}

// FormatDuration formats duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}
