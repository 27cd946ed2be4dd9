package main

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hailam/tbprobe/internal/storage"
	"github.com/hailam/tbprobe/internal/tablebase"
)

// withArgs points the global flag set at args for the duration of the test.
func withArgs(t *testing.T, args ...string) {
	t.Helper()
	oldArgs, oldFlags := os.Args, flag.CommandLine
	t.Cleanup(func() {
		os.Args, flag.CommandLine = oldArgs, oldFlags
	})
	os.Args = append([]string{"tbprobe"}, args...)
	flag.CommandLine = flag.NewFlagSet("tbprobe", flag.ContinueOnError)
}

func TestRunUnavailableClosesCache(t *testing.T) {
	cacheDir := t.TempDir()
	withArgs(t, "-path", t.TempDir(), "-cache", cacheDir, "-log-level", "error")

	err := run()
	if !errors.Is(err, errUnavailable) {
		t.Fatalf("run() = %v, want %v", err, errUnavailable)
	}

	// Badger holds a directory lock until Close.
	cache, err := storage.Open(cacheDir)
	if err != nil {
		t.Fatalf("cache left open after run returned: %v", err)
	}
	cache.Close()
}

func TestRunInvalidConfig(t *testing.T) {
	t.Setenv("TB_CACHE_SIZE", "1")
	withArgs(t)

	if err := run(); err == nil || !strings.Contains(err.Error(), "TB_CACHE_SIZE") {
		t.Errorf("run() = %v, want TB_CACHE_SIZE error", err)
	}
}

type fixedOracle struct{}

func (fixedOracle) Init(string) bool { return true }
func (fixedOracle) Largest() int     { return 3 }
func (fixedOracle) ProbeRoot(tablebase.Request) (tablebase.Result, []tablebase.Result) {
	return tablebase.AggregateResult(tablebase.WDLDraw, 0), nil
}

func TestReportOutput(t *testing.T) {
	prober := tablebase.NewRootProber(fixedOracle{})

	tests := []struct {
		name, fen, want string
	}{
		{"draw", "4k3/8/8/8/8/8/8/4K2N w - - 0 1", "draw score=0"},
		{"too many pieces", "4k3/8/8/8/8/8/8/3QK2N w - - 0 1", "4 pieces, not covered"},
		{"bad fen", "not a fen", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			probe(&buf, prober, 3, tc.fen, zerolog.Nop())
			if tc.want == "" {
				if buf.Len() != 0 {
					t.Errorf("unexpected output %q", buf.String())
				}
				return
			}
			if !strings.Contains(buf.String(), tc.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tc.want)
			}
		})
	}
}
