package tablebase

import (
	"strconv"
	"strings"

	"github.com/hailam/tbprobe/internal/board"
)

// Request is the set of masks and flags the oracle probes with. Piece masks
// cover both colors; EP is 0 when there is no en passant square.
type Request struct {
	White   uint64
	Black   uint64
	Kings   uint64
	Queens  uint64
	Rooks   uint64
	Bishops uint64
	Knights uint64
	Pawns   uint64

	Rule50      uint
	Castling    bool
	EP          uint
	WhiteToMove bool
}

// NewRequest builds the oracle request for pos.
//
// Castling is set whenever either side has lost fewer than all of its
// castling rights. The oracle refuses such positions.
func NewRequest(pos *board.Position) Request {
	kings := board.Empty.Set(pos.KingSquare[board.White]).Set(pos.KingSquare[board.Black])

	req := Request{
		White:       uint64(pos.Occupied[board.White]),
		Black:       uint64(pos.Occupied[board.Black]),
		Kings:       uint64(kings),
		Queens:      uint64(pos.PiecesOf(board.Queen)),
		Rooks:       uint64(pos.PiecesOf(board.Rook)),
		Bishops:     uint64(pos.PiecesOf(board.Bishop)),
		Knights:     uint64(pos.PiecesOf(board.Knight)),
		Pawns:       uint64(pos.PiecesOf(board.Pawn)),
		Rule50:      uint(pos.HalfMoveClock),
		Castling:    pos.CastlingRights.Lost(board.White) < board.MaxCastlingLost || pos.CastlingRights.Lost(board.Black) < board.MaxCastlingLost,
		WhiteToMove: pos.SideToMove == board.White,
	}
	if pos.EnPassant != board.NoSquare {
		req.EP = uint(pos.EnPassant)
	}
	return req
}

// PieceCount returns the number of pieces in the request.
func (r Request) PieceCount() int {
	return board.Bitboard(r.White | r.Black).PopCount()
}

// pieceAt returns the piece on sq as encoded by the request masks.
func (r Request) pieceAt(sq board.Square) board.Piece {
	bb := uint64(1) << sq
	var c board.Color
	switch {
	case r.White&bb != 0:
		c = board.White
	case r.Black&bb != 0:
		c = board.Black
	default:
		return board.NoPiece
	}

	masks := [...]uint64{r.Pawns, r.Knights, r.Bishops, r.Rooks, r.Queens, r.Kings}
	for pt, m := range masks {
		if m&bb != 0 {
			return board.NewPiece(board.PieceType(pt), c)
		}
	}
	return board.NoPiece
}

// FEN renders the request as a FEN string. Castling is written as "-" and the
// full-move number as 1, since the request carries neither.
func (r Request) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := r.pieceAt(board.NewSquare(file, rank))
			if piece == board.NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	if r.WhiteToMove {
		sb.WriteString(" w - ")
	} else {
		sb.WriteString(" b - ")
	}
	if r.EP == 0 {
		sb.WriteByte('-')
	} else {
		sb.WriteString(board.Square(r.EP).String())
	}
	sb.WriteString(" " + strconv.FormatUint(uint64(r.Rule50), 10) + " 1")
	return sb.String()
}
