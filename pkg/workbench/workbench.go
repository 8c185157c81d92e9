// Package workbench runs the address search loop on a single device (a CPU
// thread pool or a GPU), emitting progress and match events to an
// orchestrator over a shared channel.
package workbench

import (
	"fmt"
	"time"

	"github.com/seaasses/address-artisan/pkg/pathenum"
	"github.com/seaasses/address-artisan/pkg/prefix"
	"github.com/seaasses/address-artisan/pkg/xpub"
)

// Workbench drives one device's search loop.
type Workbench interface {
	// Start launches the search; it must not block.
	Start()
	// Wait blocks until the workbench's goroutines have exited, which
	// happens once the caller signals its stop channel/context.
	Wait()
	// TotalGenerated returns the number of addresses derived so far.
	TotalGenerated() uint64
}

// EventKind tags a WorkbenchEvent's variant.
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventPotentialMatch
	EventStopped
)

// Event is the tagged union of everything a Workbench reports to its
// orchestrator.
type Event struct {
	Kind      EventKind
	BenchID   string
	Timestamp time.Time

	// Progress
	AddressesGenerated uint64

	// PotentialMatch
	Path     pathenum.Path
	PrefixID int

	// Stopped
	TotalGenerated uint64
	Elapsed        time.Duration
}

// EventSender is a Workbench's handle for emitting events tagged with its
// own bench ID onto a shared channel. The zero value is not usable; use
// NewEventSender.
type EventSender struct {
	ch      chan<- Event
	benchID string
}

// NewEventSender creates a sender that tags every event with benchID.
func NewEventSender(ch chan<- Event, benchID string) EventSender {
	return EventSender{ch: ch, benchID: benchID}
}

func (s EventSender) send(e Event) {
	e.BenchID = s.benchID
	s.ch <- e
}

// Started reports that the device has begun searching.
func (s EventSender) Started(timestamp time.Time) {
	s.send(Event{Kind: EventStarted, Timestamp: timestamp})
}

// Progress reports addresses generated since the last progress event.
func (s EventSender) Progress(addressesGenerated uint64) {
	s.send(Event{Kind: EventProgress, AddressesGenerated: addressesGenerated})
}

// PotentialMatch reports an unverified candidate match at path, against
// the prefix identified by prefixID (its index in the search config).
func (s EventSender) PotentialMatch(path pathenum.Path, prefixID int) {
	s.send(Event{Kind: EventPotentialMatch, Path: path, PrefixID: prefixID})
}

// Stopped reports that the device has finished searching.
func (s EventSender) Stopped(totalGenerated uint64, elapsed time.Duration) {
	s.send(Event{Kind: EventStopped, TotalGenerated: totalGenerated, Elapsed: elapsed})
}

// DeviceKind tags which DeviceInfo variant is populated.
type DeviceKind int

const (
	DeviceCPU DeviceKind = iota
	DeviceGPU
)

// DeviceInfo describes a device available to search on.
type DeviceInfo struct {
	Kind DeviceKind
	Name string

	// CPU
	Threads uint32

	// GPU
	DeviceIndex   int
	PlatformIndex int
	IsOnboard     bool
}

// WithThreads returns a copy of a CPU DeviceInfo with Threads set; it is a
// no-op on a GPU DeviceInfo.
func (d DeviceInfo) WithThreads(threads uint32) DeviceInfo {
	if d.Kind == DeviceCPU {
		d.Threads = threads
	}
	return d
}

// Config is everything a Workbench needs to search: the target xpub, the
// prefixes to look for, the fixed path seeds, and the depth of the
// innermost (index) level.
type Config struct {
	Xpub     *xpub.ExtendedPubKey
	Prefixes []*prefix.Prefix
	Seed0    uint32
	Seed1    uint32
	MaxDepth uint32
}

// NewConfig validates and builds a Config.
func NewConfig(xp *xpub.ExtendedPubKey, prefixes []*prefix.Prefix, seed0, seed1, maxDepth uint32) (Config, error) {
	if err := pathenum.ValidateSeed("seed0", seed0); err != nil {
		return Config{}, err
	}
	if err := pathenum.ValidateSeed("seed1", seed1); err != nil {
		return Config{}, err
	}
	if err := pathenum.ValidateSeed("max_depth", maxDepth); err != nil {
		return Config{}, err
	}
	if maxDepth == 0 {
		return Config{}, fmt.Errorf("workbench: max_depth must be at least 1")
	}
	if len(prefixes) == 0 {
		return Config{}, fmt.Errorf("workbench: at least one prefix is required")
	}
	return Config{Xpub: xp, Prefixes: prefixes, Seed0: seed0, Seed1: seed1, MaxDepth: maxDepth}, nil
}
