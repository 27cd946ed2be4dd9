package tablebase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/tbprobe/internal/board"
)

// DefaultLichessURL is the Lichess standard-chess tablebase endpoint.
const DefaultLichessURL = "https://tablebase.lichess.ovh/standard"

// LichessOracle resolves root probes through the Lichess tablebase API.
// Init scans a local Syzygy directory and the largest table found there
// bounds which positions are probed.
type LichessOracle struct {
	BaseURL string
	client  *http.Client
	log     zerolog.Logger

	mu      sync.RWMutex
	path    string
	largest int
}

// NewLichessOracle creates an oracle that queries baseURL with the given
// per-request timeout.
func NewLichessOracle(baseURL string, timeout time.Duration, log zerolog.Logger) *LichessOracle {
	if baseURL == "" {
		baseURL = DefaultLichessURL
	}
	return &LichessOracle{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "syzygy").Logger(),
	}
}

func (lo *LichessOracle) Init(path string) bool {
	lo.mu.Lock()
	defer lo.mu.Unlock()

	lo.path = path
	lo.largest = 0

	if _, err := os.Stat(path); err != nil {
		lo.log.Warn().Err(err).Str("path", path).Msg("tablebase path unusable")
		return false
	}

	lo.largest = NewSyzygyDownloader(path, lo.log).MaxPiecesAvailable()
	if lo.largest == 0 {
		lo.log.Warn().Str("path", path).Msg("no tablebase files found")
		return false
	}
	lo.log.Info().Str("path", path).Int("max_pieces", lo.largest).Msg("tablebases found")
	return true
}

func (lo *LichessOracle) Largest() int {
	lo.mu.RLock()
	defer lo.mu.RUnlock()
	return lo.largest
}

// lichessResponse is the subset of the API response the oracle reads.
// Move categories are from the opponent's point of view.
type lichessResponse struct {
	Category string `json:"category"`
	DTZ      *int   `json:"dtz"`
	Moves    []struct {
		UCI      string `json:"uci"`
		Category string `json:"category"`
		DTZ      *int   `json:"dtz"`
	} `json:"moves"`
}

func (lo *LichessOracle) ProbeRoot(req Request) (Result, []Result) {
	if req.Castling || req.PieceCount() > lo.Largest() {
		return ResultFailed, nil
	}

	fen := req.FEN()
	resp, err := lo.fetch(fen)
	if err != nil {
		lo.log.Debug().Err(err).Str("fen", fen).Msg("probe failed")
		return ResultFailed, nil
	}

	wdl, ok := categoryToWDL(resp.Category)
	if !ok {
		lo.log.Debug().Str("fen", fen).Str("category", resp.Category).Msg("position not resolved")
		return ResultFailed, nil
	}

	if len(resp.Moves) > MaxMoves {
		resp.Moves = resp.Moves[:MaxMoves]
	}
	codes := make([]Result, 0, len(resp.Moves))
	for _, m := range resp.Moves {
		moveWDL, ok := categoryToWDL(m.Category)
		if !ok {
			return ResultFailed, nil
		}
		code, err := encodeUCI(req, m.UCI, moveWDL.Negate(), deref(m.DTZ))
		if err != nil {
			lo.log.Debug().Err(err).Str("fen", fen).Msg("bad move in response")
			return ResultFailed, nil
		}
		codes = append(codes, code)
	}
	return AggregateResult(wdl, deref(resp.DTZ)), codes
}

func (lo *LichessOracle) fetch(fen string) (*lichessResponse, error) {
	resp, err := lo.client.Get(lo.BaseURL + "?" + url.Values{"fen": {fen}}.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var result lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func categoryToWDL(category string) (WDL, bool) {
	switch category {
	case "win", "syzygy-win":
		return WDLWin, true
	case "maybe-win", "cursed-win":
		return WDLCursedWin, true
	case "draw":
		return WDLDraw, true
	case "maybe-loss", "blessed-loss":
		return WDLBlessedLoss, true
	case "loss", "syzygy-loss":
		return WDLLoss, true
	default:
		return 0, false
	}
}

// encodeUCI packs a UCI move into a Result. The en passant flag is set for
// pawn moves onto the request's en passant square.
func encodeUCI(req Request, uci string, wdl WDL, dtz int) (Result, error) {
	if len(uci) != 4 && len(uci) != 5 {
		return ResultFailed, fmt.Errorf("invalid uci move %q", uci)
	}
	from, err := board.ParseSquare(uci[0:2])
	if err != nil {
		return ResultFailed, err
	}
	to, err := board.ParseSquare(uci[2:4])
	if err != nil {
		return ResultFailed, err
	}

	promo := PromotesNone
	if len(uci) == 5 {
		promo = PromotesFor(board.PieceFromChar(uci[4]).Type())
		if promo == PromotesNone {
			return ResultFailed, fmt.Errorf("invalid promotion in %q", uci)
		}
	}

	ep := req.EP != 0 && uint(to) == req.EP && req.Pawns&(1<<from) != 0 && from.File() != to.File()
	return NewResult(wdl, from, to, promo, ep, dtz), nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
