package board

import (
	"errors"
	"fmt"
	"strings"
)

// Color identifies a stone color. The zero value is an empty cell.
type Color string

const (
	Empty Color = ""
	Black Color = "black"
	White Color = "white"
)

// Opponent returns the other color. Empty stays empty.
func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

func (c Color) Valid() bool { return c == Black || c == White }

// ParseColor accepts "black"/"white" and the short forms "b"/"w".
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "black", "b":
		return Black, true
	case "white", "w":
		return White, true
	default:
		return Empty, false
	}
}

var (
	ErrOutOfRange   = errors.New("coordinate out of range")
	ErrCellOccupied = errors.New("cell occupied")
	ErrInvalidSize  = errors.New("invalid board size")
)

const (
	MinSize = 5
	MaxSize = 26 // column letters A..Z
)

// Coordinate is a 0-based board position.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coordinate) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// Label renders the human form used by the voice resolver: column letter + 1-based row.
func (c Coordinate) Label() string {
	if c.Col < 0 || c.Col >= MaxSize {
		return c.String()
	}
	return fmt.Sprintf("%c%d", 'A'+rune(c.Col), c.Row+1)
}

func (c Coordinate) In(size int) bool {
	return c.Row >= 0 && c.Row < size && c.Col >= 0 && c.Col < size
}

// Board is an N×N grid of stones. A placed stone is never removed or replaced.
type Board struct {
	size  int
	cells []Color
}

func New(size int) (*Board, error) {
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return &Board{size: size, cells: make([]Color, size*size)}, nil
}

func (b *Board) Size() int { return b.size }

func (b *Board) At(c Coordinate) Color {
	if !c.In(b.size) {
		return Empty
	}
	return b.cells[c.Row*b.size+c.Col]
}

func (b *Board) IsEmpty(c Coordinate) bool { return c.In(b.size) && b.At(c) == Empty }

// Place puts a stone on an empty cell.
func (b *Board) Place(c Coordinate, color Color) error {
	if !color.Valid() {
		return fmt.Errorf("place %s: invalid color %q", c, color)
	}
	if !c.In(b.size) {
		return fmt.Errorf("%w: %s on %dx%d", ErrOutOfRange, c, b.size, b.size)
	}
	idx := c.Row*b.size + c.Col
	if b.cells[idx] != Empty {
		return fmt.Errorf("%w: %s", ErrCellOccupied, c)
	}
	b.cells[idx] = color
	return nil
}

// Stones counts placed stones.
func (b *Board) Stones() int {
	n := 0
	for _, v := range b.cells {
		if v != Empty {
			n++
		}
	}
	return n
}

// Rows returns a copy of the grid, row-major.
func (b *Board) Rows() [][]Color {
	out := make([][]Color, b.size)
	for r := 0; r < b.size; r++ {
		out[r] = append([]Color(nil), b.cells[r*b.size:(r+1)*b.size]...)
	}
	return out
}

// Clear empties the board. Only an explicit server reset may call this.
func (b *Board) Clear() {
	for i := range b.cells {
		b.cells[i] = Empty
	}
}
