package config

import (
	"testing"

	"github.com/seaasses/address-artisan/pkg/workbench"
)

const testXpub = "xpub6CbJVZm8i81HtKFhs61SQw5tR7JxPMdYmZbrhx7UeFdkPG75dX2BNctqPdFxHLU1bKXLPotWbdfNVWmea1g3ggzEGnDAxKdpJcqCUpc5rNn"

func TestParseValidMinimal(t *testing.T) {
	c, err := Parse([]string{"-xpub", testXpub, "-prefix", "1Coffee"})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Prefixes) != 1 {
		t.Fatalf("expected one prefix, got %d", len(c.Prefixes))
	}
	if c.NumAddresses != 1 {
		t.Fatalf("expected default num-addresses 1, got %d", c.NumAddresses)
	}
	if c.OutputPath != "found.csv" {
		t.Fatalf("unexpected default output path %q", c.OutputPath)
	}
}

func TestParseMultiplePrefixes(t *testing.T) {
	c, err := Parse([]string{"-xpub", testXpub, "-prefix", "1A,bc1qxy"})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Prefixes) != 2 {
		t.Fatalf("expected two prefixes, got %d", len(c.Prefixes))
	}
}

func TestParseMissingXpub(t *testing.T) {
	if _, err := Parse([]string{"-prefix", "1A"}); err == nil {
		t.Fatal("expected error for missing -xpub")
	}
}

func TestParseInvalidXpub(t *testing.T) {
	if _, err := Parse([]string{"-xpub", "not-an-xpub", "-prefix", "1A"}); err == nil {
		t.Fatal("expected error for invalid -xpub")
	}
}

func TestParseMissingPrefix(t *testing.T) {
	if _, err := Parse([]string{"-xpub", testXpub}); err == nil {
		t.Fatal("expected error for missing -prefix")
	}
}

func TestParseInvalidMaxDepth(t *testing.T) {
	if _, err := Parse([]string{"-xpub", testXpub, "-prefix", "1A", "-max-depth", "0"}); err == nil {
		t.Fatal("expected error for zero -max-depth")
	}
}

func TestParseGPUOnlyRequiresGPUDevices(t *testing.T) {
	if _, err := Parse([]string{"-xpub", testXpub, "-prefix", "1A", "-gpu-only"}); err == nil {
		t.Fatal("expected error for -gpu-only without -gpu")
	}
}

func TestParseGPUOnlyConflictsWithCPUThreads(t *testing.T) {
	_, err := Parse([]string{"-xpub", testXpub, "-prefix", "1A", "-gpu-only", "-gpu", "0", "-cpu-threads", "4"})
	if err == nil {
		t.Fatal("expected error for -gpu-only combined with -cpu-threads")
	}
}

func TestParseInvalidGPUIndex(t *testing.T) {
	if _, err := Parse([]string{"-xpub", testXpub, "-prefix", "1A", "-gpu", "abc"}); err == nil {
		t.Fatal("expected error for non-numeric -gpu index")
	}
}

func TestDevicesDefaultCPUOnly(t *testing.T) {
	c, err := Parse([]string{"-xpub", testXpub, "-prefix", "1A"})
	if err != nil {
		t.Fatal(err)
	}
	devices := c.Devices()
	if len(devices) != 1 || devices[0].Kind != workbench.DeviceCPU {
		t.Fatalf("expected a single CPU device, got %+v", devices)
	}
}

func TestDevicesGPUOnlySkipsCPU(t *testing.T) {
	c, err := Parse([]string{"-xpub", testXpub, "-prefix", "1A", "-gpu-only", "-gpu", "0,1"})
	if err != nil {
		t.Fatal(err)
	}
	devices := c.Devices()
	if len(devices) != 2 {
		t.Fatalf("expected two GPU devices, got %d", len(devices))
	}
	for _, d := range devices {
		if d.Kind != workbench.DeviceGPU {
			t.Fatalf("expected only GPU devices, got %+v", d)
		}
	}
}
