package board

import (
	"errors"
	"fmt"
	"strings"
)

// CastlingRights is the set of castling options still available.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// MaxCastlingLost is the number of rights a side holds at the start of a game.
const MaxCastlingLost = 2

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	mask := WhiteQueenSideCastle
	if kingSide {
		mask = WhiteKingSideCastle
	}
	if c == Black {
		mask <<= 2
	}
	return cr&mask != 0
}

// Lost returns how many of its castling rights side c has forfeited (0-2).
func (cr CastlingRights) Lost(c Color) int {
	lost := 0
	if !cr.CanCastle(c, true) {
		lost++
	}
	if !cr.CanCastle(c, false) {
		lost++
	}
	return lost
}

// Position is a complete chess position.
type Position struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // NoSquare if none
	HalfMoveClock  int
	FullMoveNumber int

	KingSquare [2]Square
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}

	c := White
	if p.Occupied[White]&bb == 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// PieceTypeAt returns the type of the piece on sq, or NoPieceType.
func (p *Position) PieceTypeAt(sq Square) PieceType {
	return p.PieceAt(sq).Type()
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// PiecesOf returns the pieces of type pt for both colors.
func (p *Position) PiecesOf(pt PieceType) Bitboard {
	return p.Pieces[White][pt] | p.Pieces[Black][pt]
}

// CountPieces returns the number of pieces on the board, kings included.
func (p *Position) CountPieces() int {
	return p.AllOccupied.PopCount()
}

func (p *Position) setPiece(piece Piece, sq Square) {
	if piece == NoPiece {
		return
	}
	c := piece.Color()
	pt := piece.Type()
	bb := SquareBB(sq)

	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb

	if pt == King {
		p.KingSquare[c] = sq
	}
}

func (p *Position) updateOccupied() {
	p.Occupied = [2]Bitboard{}
	for pt := Pawn; pt <= King; pt++ {
		p.Occupied[White] |= p.Pieces[White][pt]
		p.Occupied[Black] |= p.Pieces[Black][pt]
	}
	p.AllOccupied = p.Occupied[White] | p.Occupied[Black]
	p.KingSquare[White] = p.Pieces[White][King].LSB()
	p.KingSquare[Black] = p.Pieces[Black][King].LSB()
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", p.SideToMove)
	fmt.Fprintf(&sb, "Castling: %s\n", p.CastlingRights)
	fmt.Fprintf(&sb, "En passant: %s\n", p.EnPassant)
	fmt.Fprintf(&sb, "Half-move clock: %d\n", p.HalfMoveClock)
	return sb.String()
}

// Validate checks the position for obviously impossible placements.
func (p *Position) Validate() error {
	if p.Pieces[White][King].PopCount() != 1 {
		return errors.New("white must have exactly one king")
	}
	if p.Pieces[Black][King].PopCount() != 1 {
		return errors.New("black must have exactly one king")
	}
	if p.PiecesOf(Pawn)&(Rank1|Rank8) != 0 {
		return errors.New("pawns cannot be on rank 1 or 8")
	}
	if p.EnPassant != NoSquare && SquareBB(p.EnPassant)&(Rank3|Rank6) == 0 {
		return fmt.Errorf("en passant square %s is not on rank 3 or 6", p.EnPassant)
	}
	return nil
}
