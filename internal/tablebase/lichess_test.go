package tablebase

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// tbDir creates a directory holding empty WDL/DTZ files for the given tables.
func tbDir(t *testing.T, tables ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range tables {
		for _, suffix := range []string{wdlSuffix, dtzSuffix} {
			if err := os.WriteFile(filepath.Join(dir, name+suffix), nil, 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return dir
}

// lichessServer serves body for requests whose fen parameter equals fen and
// 404 for everything else. It counts requests.
func lichessServer(t *testing.T, fen, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.URL.Query().Get("fen"); got != fen {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestOracle(t *testing.T, url string, tables ...string) *LichessOracle {
	t.Helper()
	lo := NewLichessOracle(url, time.Second, zerolog.Nop())
	if !lo.Init(tbDir(t, tables...)) {
		t.Fatal("Init failed")
	}
	return lo
}

func TestLichessOracleInit(t *testing.T) {
	lo := NewLichessOracle("", time.Second, zerolog.Nop())
	if lo.BaseURL != DefaultLichessURL {
		t.Errorf("BaseURL = %q, want default", lo.BaseURL)
	}

	t.Run("InvalidPath", func(t *testing.T) {
		if got := Init(lo, filepath.Join(t.TempDir(), "missing")); got != 0 {
			t.Errorf("Init = %d, want 0", got)
		}
	})

	t.Run("EmptyDir", func(t *testing.T) {
		if got := Init(lo, t.TempDir()); got != 0 {
			t.Errorf("Init = %d, want 0", got)
		}
	})

	t.Run("Tables", func(t *testing.T) {
		if got := Init(lo, tbDir(t, "KQvK", "KRPvKB")); got != 5 {
			t.Errorf("Init = %d, want 5", got)
		}
	})
}

func TestLichessOracleProbeRoot(t *testing.T) {
	const fen = "4k3/8/8/8/8/8/8/4KQ2 w - - 0 1"
	body := `{"category":"win","dtz":19,"moves":[
		{"uci":"f1f7","category":"loss","dtz":-18},
		{"uci":"e1e2","category":"maybe-loss","dtz":-100},
		{"uci":"f1f8","category":"draw","dtz":0}]}`
	srv, _ := lichessServer(t, fen, body)
	lo := newTestOracle(t, srv.URL, "KQvK")

	result, moves := lo.ProbeRoot(NewRequest(mustFEN(t, fen)))
	if result.Failed() {
		t.Fatal("expected probe to succeed")
	}
	if result.WDL() != WDLWin || result.DTZ() != 19 {
		t.Errorf("aggregate = %s dtz %d, want win dtz 19", result.WDL(), result.DTZ())
	}

	want := []struct {
		uci string
		wdl WDL
	}{
		{"f1f7", WDLWin},
		{"e1e2", WDLCursedWin},
		{"f1f8", WDLDraw},
	}
	if len(moves) != len(want) {
		t.Fatalf("got %d moves, want %d", len(moves), len(want))
	}
	for i, w := range want {
		m := moves[i]
		if got := m.From().String() + m.To().String(); got != w.uci {
			t.Errorf("move %d = %s, want %s", i, got, w.uci)
		}
		if m.WDL() != w.wdl {
			t.Errorf("move %d wdl = %s, want %s", i, m.WDL(), w.wdl)
		}
		if m.EP() || m.Promotes() != PromotesNone {
			t.Errorf("move %d has unexpected flags", i)
		}
	}

	res := NewRootProber(lo).ProbeRoot(mustFEN(t, fen))
	if got := moveStrings(res.Moves); len(got) != 1 || got[0] != "f1f7" {
		t.Errorf("filtered moves = %v, want [f1f7]", got)
	}
}

func TestLichessOracleEncodesSpecialMoves(t *testing.T) {
	const fen = "4k3/4P3/8/3pP3/8/8/8/4K3 w - d6 0 1"
	body := `{"category":"win","dtz":1,"moves":[
		{"uci":"e5d6","category":"loss","dtz":-1},
		{"uci":"e5e6","category":"loss","dtz":-1}]}`
	srv, _ := lichessServer(t, fen, body)
	lo := newTestOracle(t, srv.URL, "KPPvKP")

	_, moves := lo.ProbeRoot(NewRequest(mustFEN(t, fen)))
	if len(moves) != 2 {
		t.Fatalf("got %d moves, want 2", len(moves))
	}
	if !moves[0].EP() {
		t.Error("e5d6 should carry the en passant flag")
	}
	if moves[1].EP() {
		t.Error("e5e6 should not carry the en passant flag")
	}
}

func TestEncodeUCIPromotion(t *testing.T) {
	req := NewRequest(mustFEN(t, "8/4P3/8/8/8/8/k7/4K3 w - - 0 1"))

	tests := []struct {
		uci   string
		promo Promotes
	}{
		{"e7e8q", PromotesQueen},
		{"e7e8r", PromotesRook},
		{"e7e8b", PromotesBishop},
		{"e7e8n", PromotesKnight},
		{"e1d1", PromotesNone},
	}
	for _, tc := range tests {
		r, err := encodeUCI(req, tc.uci, WDLWin, 0)
		if err != nil {
			t.Fatalf("encodeUCI(%s): %v", tc.uci, err)
		}
		if r.Promotes() != tc.promo {
			t.Errorf("%s: Promotes = %d, want %d", tc.uci, r.Promotes(), tc.promo)
		}
	}

	for _, bad := range []string{"e7", "e7e8k", "e7e9q", "z1a1"} {
		if _, err := encodeUCI(req, bad, WDLWin, 0); err == nil {
			t.Errorf("encodeUCI(%s) should fail", bad)
		}
	}
}

func TestLichessOracleMisses(t *testing.T) {
	const fen = "4k3/8/8/8/8/8/8/4KQ2 w - - 0 1"

	t.Run("Castling", func(t *testing.T) {
		srv, hits := lichessServer(t, fen, `{"category":"win"}`)
		lo := newTestOracle(t, srv.URL, "KRRvKR")

		result, _ := lo.ProbeRoot(NewRequest(mustFEN(t, "r3k3/8/8/8/8/8/8/R3K2R w K - 0 1")))
		if !result.Failed() {
			t.Error("castling position should not be probed")
		}
		if hits.Load() != 0 {
			t.Errorf("server hit %d times", hits.Load())
		}
	})

	t.Run("TooManyPieces", func(t *testing.T) {
		srv, hits := lichessServer(t, fen, `{"category":"win"}`)
		lo := newTestOracle(t, srv.URL, "KQvK")

		result, _ := lo.ProbeRoot(NewRequest(mustFEN(t, "4k3/8/8/8/8/8/8/3RKQ2 w - - 0 1")))
		if !result.Failed() || hits.Load() != 0 {
			t.Error("position above capacity should not be probed")
		}
	})

	t.Run("HTTPError", func(t *testing.T) {
		srv, _ := lichessServer(t, "other", `{}`)
		lo := newTestOracle(t, srv.URL, "KQvK")
		if result, _ := lo.ProbeRoot(NewRequest(mustFEN(t, fen))); !result.Failed() {
			t.Error("HTTP 404 should be a miss")
		}
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		srv, _ := lichessServer(t, fen, `{"category":"unknown","moves":[]}`)
		lo := newTestOracle(t, srv.URL, "KQvK")
		if result, _ := lo.ProbeRoot(NewRequest(mustFEN(t, fen))); !result.Failed() {
			t.Error("unknown category should be a miss")
		}
	})

	t.Run("BadJSON", func(t *testing.T) {
		srv, _ := lichessServer(t, fen, `{"category":`)
		lo := newTestOracle(t, srv.URL, "KQvK")
		if result, _ := lo.ProbeRoot(NewRequest(mustFEN(t, fen))); !result.Failed() {
			t.Error("malformed response should be a miss")
		}
	})

	t.Run("NotInitialized", func(t *testing.T) {
		srv, hits := lichessServer(t, fen, `{"category":"win"}`)
		lo := NewLichessOracle(srv.URL, time.Second, zerolog.Nop())
		if result, _ := lo.ProbeRoot(NewRequest(mustFEN(t, fen))); !result.Failed() || hits.Load() != 0 {
			t.Error("uninitialized oracle should not probe")
		}
	})
}

func TestCategoryToWDL(t *testing.T) {
	tests := []struct {
		category string
		wdl      WDL
		ok       bool
	}{
		{"win", WDLWin, true},
		{"syzygy-win", WDLWin, true},
		{"maybe-win", WDLCursedWin, true},
		{"cursed-win", WDLCursedWin, true},
		{"draw", WDLDraw, true},
		{"blessed-loss", WDLBlessedLoss, true},
		{"maybe-loss", WDLBlessedLoss, true},
		{"loss", WDLLoss, true},
		{"syzygy-loss", WDLLoss, true},
		{"unknown", 0, false},
		{"", 0, false},
	}

	for _, tc := range tests {
		wdl, ok := categoryToWDL(tc.category)
		if ok != tc.ok || (ok && wdl != tc.wdl) {
			t.Errorf("categoryToWDL(%q) = %s, %v; want %s, %v", tc.category, wdl, ok, tc.wdl, tc.ok)
		}
	}
}
