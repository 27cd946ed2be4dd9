package tablebase

import "github.com/hailam/tbprobe/internal/board"

// Result is a packed oracle result code:
// bits 0-3:   WDL
// bits 4-9:   to square
// bits 10-15: from square
// bits 16-18: promotion (Promotes)
// bit 19:     en passant flag
// bits 20-31: distance to zeroing
type Result uint32

const (
	resultWDLMask      = 0x0000000F
	resultToMask       = 0x000003F0
	resultFromMask     = 0x0000FC00
	resultPromotesMask = 0x00070000
	resultEPMask       = 0x00080000
	resultDTZMask      = 0xFFF00000

	resultToShift       = 4
	resultFromShift     = 10
	resultPromotesShift = 16
	resultDTZShift      = 20
)

// ResultFailed marks an unresolvable position.
const ResultFailed Result = 0xFFFFFFFF

// MaxMoves bounds the number of per-move codes an oracle may return.
const MaxMoves = 192 + 1

// Promotes is the promotion field of a Result.
type Promotes uint8

const (
	PromotesNone Promotes = iota
	PromotesQueen
	PromotesRook
	PromotesBishop
	PromotesKnight
)

// PieceType decodes the promotion field. ok is false for values outside the
// five defined codes.
func (p Promotes) PieceType() (pt board.PieceType, ok bool) {
	switch p {
	case PromotesNone:
		return board.NoPieceType, true
	case PromotesQueen:
		return board.Queen, true
	case PromotesRook:
		return board.Rook, true
	case PromotesBishop:
		return board.Bishop, true
	case PromotesKnight:
		return board.Knight, true
	}
	return board.NoPieceType, false
}

// PromotesFor encodes a promotion piece type; anything else is PromotesNone.
func PromotesFor(pt board.PieceType) Promotes {
	switch pt {
	case board.Queen:
		return PromotesQueen
	case board.Rook:
		return PromotesRook
	case board.Bishop:
		return PromotesBishop
	case board.Knight:
		return PromotesKnight
	}
	return PromotesNone
}

// NewResult packs a result code. dtz is clamped to the 12-bit field.
func NewResult(wdl WDL, from, to board.Square, promo Promotes, ep bool, dtz int) Result {
	if dtz < 0 {
		dtz = -dtz
	}
	if dtz > 0xFFF {
		dtz = 0xFFF
	}
	r := Result(wdl)&resultWDLMask |
		Result(to)<<resultToShift&resultToMask |
		Result(from)<<resultFromShift&resultFromMask |
		Result(promo)<<resultPromotesShift&resultPromotesMask |
		Result(dtz)<<resultDTZShift&resultDTZMask
	if ep {
		r |= resultEPMask
	}
	return r
}

// AggregateResult packs a position-level result carrying only WDL and DTZ.
func AggregateResult(wdl WDL, dtz int) Result {
	return NewResult(wdl, 0, 0, PromotesNone, false, dtz)
}

func (r Result) Failed() bool {
	return r == ResultFailed
}

func (r Result) WDL() WDL {
	return WDL(r & resultWDLMask)
}

func (r Result) From() board.Square {
	return board.Square((r & resultFromMask) >> resultFromShift)
}

func (r Result) To() board.Square {
	return board.Square((r & resultToMask) >> resultToShift)
}

func (r Result) Promotes() Promotes {
	return Promotes((r & resultPromotesMask) >> resultPromotesShift)
}

func (r Result) EP() bool {
	return r&resultEPMask != 0
}

func (r Result) DTZ() int {
	return int((r & resultDTZMask) >> resultDTZShift)
}
