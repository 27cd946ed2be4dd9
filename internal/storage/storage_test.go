package storage

import (
	"os"
	"testing"
)

func TestProbeCache(t *testing.T) {
	cache, err := Open("")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer cache.Close()

	t.Run("Missing", func(t *testing.T) {
		entry, err := cache.Get("8/8/8/8/8/8/8/8 w - - 0 1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if entry != nil {
			t.Errorf("Expected no entry, got %+v", entry)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		key := "4k3/8/8/8/8/8/8/4KQ2 w - - 0 1"
		in := &Entry{Result: 0x4, Moves: []uint32{0x1234, 0x5678}}
		if err := cache.Put(key, in); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if in.Stored.IsZero() {
			t.Error("Put should stamp the entry")
		}

		out, err := cache.Get(key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if out == nil {
			t.Fatal("Expected entry after Put")
		}
		if out.Result != in.Result {
			t.Errorf("Result = %#x, want %#x", out.Result, in.Result)
		}
		if len(out.Moves) != 2 || out.Moves[0] != 0x1234 || out.Moves[1] != 0x5678 {
			t.Errorf("Moves = %v, want [0x1234 0x5678]", out.Moves)
		}
	})

	t.Run("Count", func(t *testing.T) {
		n, err := cache.Count()
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Count = %d, want 1", n)
		}
	})
}

func TestProbeCachePersists(t *testing.T) {
	dir := t.TempDir()

	cache, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := cache.Put("k", &Entry{Result: 2}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	cache, err = Open(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer cache.Close()

	entry, err := cache.Get("k")
	if err != nil || entry == nil {
		t.Fatalf("Get after reopen = %v, %v", entry, err)
	}
	if entry.Result != 2 {
		t.Errorf("Result = %d, want 2", entry.Result)
	}
}

func TestDataPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}

	cacheDir, err := GetCacheDir()
	if err != nil {
		t.Fatalf("GetCacheDir failed: %v", err)
	}
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Errorf("Cache directory was not created: %s", cacheDir)
	}
}
