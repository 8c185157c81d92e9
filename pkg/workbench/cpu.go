package workbench

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/seaasses/address-artisan/pkg/deriver"
	"github.com/seaasses/address-artisan/pkg/pathenum"
)

const (
	minChunkSize            = 100
	maxChunkSize            = 200_000
	targetBatchDurationMs   = 1_000
	maxUpperAdjustmentFactor = 1.20
	reportInterval          = time.Second
)

// CPUWorkbench searches using a pool of goroutines, each owning its own
// Deriver and pulling disjoint counter chunks from a shared atomic cursor.
// Chunk size is adjusted every iteration to target a ~1s batch duration.
type CPUWorkbench struct {
	config  Config
	workers int
	events  EventSender

	stop chan struct{}

	nextCounter     atomic.Uint64
	globalGenerated atomic.Uint64

	wg sync.WaitGroup
}

// NewCPUWorkbench creates a CPU workbench with the given number of worker
// goroutines. stop is closed by the caller to request shutdown.
func NewCPUWorkbench(config Config, workers int, events EventSender, stop chan struct{}) *CPUWorkbench {
	return &CPUWorkbench{
		config:  config,
		workers: workers,
		events:  events,
		stop:    stop,
	}
}

// Start implements Workbench. Once every worker has exited, a Stopped
// event carries the total generated and the elapsed time.
func (b *CPUWorkbench) Start() {
	startedAt := time.Now()
	b.events.Started(startedAt)

	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}

	go func() {
		b.wg.Wait()
		b.events.Stopped(b.globalGenerated.Load(), time.Since(startedAt))
	}()
}

// Wait implements Workbench.
func (b *CPUWorkbench) Wait() {
	b.wg.Wait()
}

// TotalGenerated implements Workbench.
func (b *CPUWorkbench) TotalGenerated() uint64 {
	return b.globalGenerated.Load()
}

func (b *CPUWorkbench) worker() {
	defer b.wg.Done()

	d, err := deriver.New(b.config.Xpub)
	if err != nil {
		// The root public key was already validated when the xpub was
		// parsed; this cannot happen in practice.
		return
	}

	chunkSize := uint64(minChunkSize)
	generatedSinceReport := uint64(0)
	lastReport := time.Now()

	for {
		select {
		case <-b.stop:
			if generatedSinceReport > 0 {
				b.events.Progress(generatedSinceReport)
			}
			return
		default:
		}

		batchStart := time.Now()
		startCounter := b.nextCounter.Add(chunkSize) - chunkSize

		it := pathenum.NewIterator(b.config.Seed0, b.config.Seed1, b.config.MaxDepth, startCounter, chunkSize)
		for {
			path, ok := it.Next()
			if !ok {
				break
			}
			hash, err := d.DeriveHash160(path)
			if err != nil {
				continue
			}
			for prefixID, p := range b.config.Prefixes {
				if p.Matches(hash) {
					b.events.PotentialMatch(path, prefixID)
				}
			}
			generatedSinceReport++
		}

		b.globalGenerated.Add(chunkSize)

		if time.Since(lastReport) >= reportInterval {
			b.events.Progress(generatedSinceReport)
			generatedSinceReport = 0
			lastReport = time.Now()
		}

		batchDurationMs := time.Since(batchStart).Milliseconds()
		if batchDurationMs < 1 {
			batchDurationMs = 1
		}

		idealChunk := chunkSize * targetBatchDurationMs / uint64(batchDurationMs)
		var newChunk uint64
		if idealChunk > chunkSize {
			grown := float64(chunkSize) * maxUpperAdjustmentFactor
			if grown < float64(idealChunk) {
				newChunk = uint64(grown)
			} else {
				newChunk = idealChunk
			}
		} else {
			newChunk = idealChunk
		}

		chunkSize = clamp(newChunk, minChunkSize, maxChunkSize)
	}
}

func clamp(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
