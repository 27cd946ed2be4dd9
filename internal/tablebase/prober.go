package tablebase

import (
	"errors"
	"fmt"

	"github.com/hailam/tbprobe/internal/board"
)

// ErrContractViolation is wrapped by every *ContractError.
var ErrContractViolation = errors.New("tablebase: oracle contract violation")

// ContractError reports oracle output that does not match the result
// encoding. The prober panics with it; it is not a recoverable probe miss.
type ContractError struct {
	Reason string
	Code   Result
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%v: %s (code %#08x)", ErrContractViolation, e.Reason, uint32(e.Code))
}

func (e *ContractError) Unwrap() error {
	return ErrContractViolation
}

func violation(code Result, format string, args ...any) {
	panic(&ContractError{Reason: fmt.Sprintf(format, args...), Code: code})
}

// MoveKind distinguishes en passant captures from every other root move.
// Castling never appears: the oracle refuses positions where it is legal.
type MoveKind uint8

const (
	Normal MoveKind = iota
	EnPassant
)

// RootMove is a root move reconstructed from an oracle code.
type RootMove struct {
	From      board.Square
	To        board.Square
	Piece     board.PieceType
	Promotion board.PieceType // NoPieceType when not a promotion
	Captured  board.PieceType // NoPieceType when not a capture
	Kind      MoveKind
}

// Move converts the root move to the compact board encoding.
func (m RootMove) Move() board.Move {
	switch {
	case m.Kind == EnPassant:
		return board.NewEnPassant(m.From, m.To)
	case m.Promotion != board.NoPieceType:
		return board.NewPromotion(m.From, m.To, m.Promotion)
	default:
		return board.NewMove(m.From, m.To)
	}
}

func (m RootMove) IsCapture() bool {
	return m.Captured != board.NoPieceType
}

// String returns the move in UCI notation.
func (m RootMove) String() string {
	return m.Move().String()
}

// RootResult is the outcome of a root probe. WDL, Score and Moves are only
// meaningful when Found is true.
type RootResult struct {
	Found bool
	WDL   WDL
	Score int
	Moves []RootMove
}

// RootProber probes the oracle at the root and keeps the moves that preserve
// the position's classification. It holds no mutable state.
type RootProber struct {
	oracle Oracle

	// UniformMoveWDL compares every move against the aggregate result
	// instead of the classification carried in each move code, which keeps
	// every move the oracle returns.
	UniformMoveWDL bool
}

// NewRootProber creates a root prober over an initialized oracle.
func NewRootProber(o Oracle) *RootProber {
	return &RootProber{oracle: o}
}

// ProbeRoot probes pos. Found is false when the oracle cannot resolve the
// position. An empty Moves with Found true means the oracle resolved the
// position but prefers no move, e.g. at mate or stalemate.
func (p *RootProber) ProbeRoot(pos *board.Position) RootResult {
	result, codes := p.oracle.ProbeRoot(NewRequest(pos))
	if result.Failed() {
		return RootResult{}
	}

	wdl := result.WDL()
	if !wdl.Valid() {
		violation(result, "wdl %d out of range", int(wdl))
	}
	if len(codes) > MaxMoves {
		violation(result, "%d move codes exceed the %d move limit", len(codes), MaxMoves)
	}

	rr := RootResult{
		Found: true,
		WDL:   wdl,
		Score: wdl.Score(),
	}
	for _, code := range codes {
		// A failed code terminates the list like the C-style sentinel.
		if code.Failed() {
			break
		}

		moveWDL := wdl
		if !p.UniformMoveWDL {
			moveWDL = code.WDL()
			if !moveWDL.Valid() {
				violation(code, "move wdl %d out of range", int(moveWDL))
			}
		}
		if moveWDL < wdl {
			continue
		}
		rr.Moves = append(rr.Moves, reconstruct(pos, code))
	}
	return rr
}

func reconstruct(pos *board.Position, code Result) RootMove {
	from, to := code.From(), code.To()
	promo, ok := code.Promotes().PieceType()
	if !ok {
		violation(code, "unknown promotion %d", code.Promotes())
	}

	piece := pos.PieceTypeAt(from)
	if piece == board.NoPieceType {
		violation(code, "no piece on origin square %s", from)
	}

	m := RootMove{
		From:      from,
		To:        to,
		Piece:     piece,
		Promotion: promo,
		Captured:  pos.PieceTypeAt(to),
		Kind:      Normal,
	}
	if code.EP() {
		m.Captured = board.Pawn
		m.Kind = EnPassant
	}
	return m
}
