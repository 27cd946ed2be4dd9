// Package tablebase probes Syzygy-style endgame tablebases at the root and
// filters root moves down to the ones that keep the proven result.
package tablebase

import "fmt"

// WDL is the five-way win/draw/loss classification reported by the oracle,
// from the point of view of the side to move.
type WDL int

const (
	WDLLoss        WDL = iota // Loss
	WDLBlessedLoss            // Loss the 50-move rule turns into a draw
	WDLDraw                   // Draw
	WDLCursedWin              // Win the 50-move rule turns into a draw
	WDLWin                    // Win
)

// Score scale constants. A cursed result scores CursedScore so move ordering
// treats it close to a draw while search bounds still see a non-zero value.
const (
	TablebaseWin = 29000
	CursedScore  = 5
)

var wdlScores = [5]int{-TablebaseWin, -CursedScore, 0, CursedScore, TablebaseWin}

// Valid reports whether w is one of the five classifications.
func (w WDL) Valid() bool {
	return w >= WDLLoss && w <= WDLWin
}

// Score maps w onto the fixed score scale. It panics with a *ContractError
// when w is out of range.
func (w WDL) Score() int {
	if !w.Valid() {
		panic(&ContractError{Reason: fmt.Sprintf("wdl %d out of range", int(w)), Code: ResultFailed})
	}
	return wdlScores[w]
}

// Negate returns the classification from the opponent's point of view.
func (w WDL) Negate() WDL {
	return WDLWin - w
}

func (w WDL) String() string {
	switch w {
	case WDLLoss:
		return "loss"
	case WDLBlessedLoss:
		return "blessed-loss"
	case WDLDraw:
		return "draw"
	case WDLCursedWin:
		return "cursed-win"
	case WDLWin:
		return "win"
	default:
		return fmt.Sprintf("wdl(%d)", int(w))
	}
}

// Oracle is the tablebase lookup engine. Implementations must be safe for
// concurrent ProbeRoot calls once Init has returned.
type Oracle interface {
	// Init loads the tablebases found at path and reports success.
	Init(path string) bool

	// Largest returns the largest piece count the loaded tables resolve.
	Largest() int

	// ProbeRoot returns the aggregate result for req and one code per root
	// move. The aggregate is ResultFailed when the position cannot be
	// resolved. At most MaxMoves codes are returned.
	ProbeRoot(req Request) (Result, []Result)
}

// Init hands path to the oracle and returns the largest piece count it can
// resolve, or 0 when the tablebases are unavailable.
func Init(o Oracle, path string) int {
	if !o.Init(path) {
		return 0
	}
	return o.Largest()
}
