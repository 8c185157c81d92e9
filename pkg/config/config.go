// Package config turns the CLI-facing flag surface into a validated
// workbench configuration and device list. All validation happens here,
// at the boundary: a malformed xpub, prefix, or flag combination is
// reported and the process exits before any workbench starts.
package config

import (
	"flag"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/seaasses/address-artisan/pkg/pathenum"
	"github.com/seaasses/address-artisan/pkg/prefix"
	"github.com/seaasses/address-artisan/pkg/workbench"
	"github.com/seaasses/address-artisan/pkg/xpub"
)

const maxPrefixes = 256

// Config is the fully validated configuration a run is built from.
type Config struct {
	Xpub       *xpub.ExtendedPubKey
	XpubString string
	Prefixes   []*prefix.Prefix
	MaxDepth   uint32

	CPUThreads   int
	GPUDeviceIdx []int
	GPUOnly      bool

	NumAddresses int
	OutputPath   string
}

// Parse parses args (typically os.Args[1:]) into a validated Config.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("addressartisan", flag.ContinueOnError)

	xpubFlag := fs.String("xpub", "", "extended public key (xpub) to search under")
	prefixFlag := fs.String("prefix", "", "comma-separated vanity prefixes to search for, 1-256 total (e.g. \"1Coffee,bc1qcafe\")")
	maxDepthFlag := fs.Uint("max-depth", uint(pathenum.MaxIndex), "number of index values searched per (b, a) pair, in [1, 2^31-1]")
	cpuThreadsFlag := fs.Int("cpu-threads", 0, "number of CPU worker threads (0 = auto-detect from GOMAXPROCS)")
	gpuFlag := fs.String("gpu", "", "comma-separated GPU device indices to search on")
	gpuOnlyFlag := fs.Bool("gpu-only", false, "search only on the selected GPU devices, skip the CPU")
	numAddressesFlag := fs.Int("num-addresses", 1, "stop after this many confirmed matches (0 = unbounded)")
	outFlag := fs.String("out", "found.csv", "CSV file confirmed matches are written to (an existing file is overwritten)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *xpubFlag == "" {
		return Config{}, fmt.Errorf("config: -xpub is required")
	}
	parsedXpub, err := xpub.Parse(*xpubFlag)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	prefixes, err := parsePrefixes(*prefixFlag)
	if err != nil {
		return Config{}, err
	}

	if *maxDepthFlag == 0 || *maxDepthFlag > uint(pathenum.MaxIndex) {
		return Config{}, fmt.Errorf("config: -max-depth must be in [1, 2^31-1], got %d", *maxDepthFlag)
	}

	if *cpuThreadsFlag < 0 {
		return Config{}, fmt.Errorf("config: -cpu-threads must be >= 0, got %d", *cpuThreadsFlag)
	}
	if *gpuOnlyFlag && *cpuThreadsFlag != 0 {
		return Config{}, fmt.Errorf("config: -gpu-only and -cpu-threads cannot be used together")
	}
	cpuThreads := *cpuThreadsFlag
	if cpuThreads == 0 {
		cpuThreads = runtime.GOMAXPROCS(0)
	}

	gpuDevices, err := parseGPUDevices(*gpuFlag)
	if err != nil {
		return Config{}, err
	}

	if *gpuOnlyFlag && len(gpuDevices) == 0 {
		return Config{}, fmt.Errorf("config: -gpu-only requires at least one -gpu device index")
	}

	if *numAddressesFlag < 0 {
		return Config{}, fmt.Errorf("config: -num-addresses must be >= 0, got %d", *numAddressesFlag)
	}

	if *outFlag == "" {
		return Config{}, fmt.Errorf("config: -out must not be empty")
	}

	return Config{
		Xpub:         parsedXpub,
		XpubString:   *xpubFlag,
		Prefixes:     prefixes,
		MaxDepth:     uint32(*maxDepthFlag),
		CPUThreads:   cpuThreads,
		GPUDeviceIdx: gpuDevices,
		GPUOnly:      *gpuOnlyFlag,
		NumAddresses: *numAddressesFlag,
		OutputPath:   *outFlag,
	}, nil
}

func parsePrefixes(raw string) ([]*prefix.Prefix, error) {
	if raw == "" {
		return nil, fmt.Errorf("config: -prefix is required")
	}
	literals := strings.Split(raw, ",")
	if len(literals) > maxPrefixes {
		return nil, fmt.Errorf("config: at most %d prefixes are allowed, got %d", maxPrefixes, len(literals))
	}

	prefixes := make([]*prefix.Prefix, 0, len(literals))
	for _, literal := range literals {
		literal = strings.TrimSpace(literal)
		if literal == "" {
			return nil, fmt.Errorf("config: empty prefix in -prefix")
		}
		p, err := prefix.New(literal)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, nil
}

func parseGPUDevices(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	devices := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("config: invalid -gpu device index %q", part)
		}
		devices = append(devices, idx)
	}
	return devices, nil
}

// Devices builds the list of devices a run should spawn a workbench per,
// from the validated CPU/GPU selection.
func (c Config) Devices() []workbench.DeviceInfo {
	var devices []workbench.DeviceInfo
	if !c.GPUOnly {
		devices = append(devices, workbench.DeviceInfo{
			Kind:    workbench.DeviceCPU,
			Name:    "cpu",
			Threads: uint32(c.CPUThreads),
		})
	}
	for _, idx := range c.GPUDeviceIdx {
		devices = append(devices, workbench.DeviceInfo{
			Kind:        workbench.DeviceGPU,
			Name:        fmt.Sprintf("gpu%d", idx),
			DeviceIndex: idx,
		})
	}
	return devices
}
