// Command addressartisan searches the non-hardened BIP32 subtree of an
// xpub for P2PKH/P2WPKH addresses matching one or more vanity prefixes.
package main

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/seaasses/address-artisan/internal/ui"
	"github.com/seaasses/address-artisan/pkg/config"
	"github.com/seaasses/address-artisan/pkg/orchestrator"
	"github.com/seaasses/address-artisan/pkg/pathenum"
	"github.com/seaasses/address-artisan/pkg/workbench"
)

const version = "0.1"

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "addressartisan: %v\n", err)
		os.Exit(1)
	}

	ui.PrintWelcomeBanner(version)

	devices := cfg.Devices()
	console := ui.NewConsole()

	orch, err := orchestrator.New(cfg.XpubString, cfg.Prefixes, cfg.NumAddresses, console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "addressartisan: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		orch.RequestStop()
	}()

	var wg sync.WaitGroup
	for _, device := range devices {
		wg.Add(1)
		go func(d workbench.DeviceInfo) {
			defer wg.Done()
			spawnWorkbench(cfg, orch, d)
		}(device)
	}

	found := orch.Run(len(devices))
	wg.Wait()
	signal.Stop(sigCh)

	if err := writeFoundCSV(cfg.OutputPath, found); err != nil {
		slog.Error("failed to write found-address CSV", "path", cfg.OutputPath, "err", err)
	}

	os.Exit(0)
}

func spawnWorkbench(cfg config.Config, orch *orchestrator.Orchestrator, device workbench.DeviceInfo) {
	seed0, err := randomSeed()
	if err != nil {
		slog.Error("failed to draw random seed", "device", device.Name, "err", err)
		return
	}
	seed1, err := randomSeed()
	if err != nil {
		slog.Error("failed to draw random seed", "device", device.Name, "err", err)
		return
	}

	wbConfig, err := workbench.NewConfig(cfg.Xpub, cfg.Prefixes, seed0, seed1, cfg.MaxDepth)
	if err != nil {
		slog.Error("invalid workbench configuration", "device", device.Name, "err", err)
		return
	}

	events := workbench.NewEventSender(orch.Events(), device.Name)

	var bench workbench.Workbench
	switch device.Kind {
	case workbench.DeviceCPU:
		threads := int(device.Threads)
		if threads <= 0 {
			threads = 1
		}
		bench = workbench.NewCPUWorkbench(wbConfig, threads, events, orch.StopSignal())
	case workbench.DeviceGPU:
		bench = workbench.NewGPUWorkbench(wbConfig, events, orch.StopSignal(), device.PlatformIndex, device.DeviceIndex)
	default:
		slog.Error("unknown device kind", "device", device.Name)
		return
	}

	bench.Start()
	bench.Wait()
}

// randomSeed draws a cryptographically random value in [0, 2^31), the
// domain of a non-hardened BIP32 index.
func randomSeed() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]) & pathenum.MaxIndex, nil
}

func writeFoundCSV(path string, found []orchestrator.FoundAddress) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"address", "type", "prefix", "derivation_path", "index"}); err != nil {
		return err
	}
	for _, m := range found {
		derivationPath := fmt.Sprintf("xpub'/%d/%d/%d/%d", m.Path[0], m.Path[1], m.Path[2], m.Path[3])
		if err := w.Write([]string{
			m.Address,
			m.Kind.String(),
			m.Prefix,
			derivationPath,
			fmt.Sprintf("%d", m.Path[5]),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
