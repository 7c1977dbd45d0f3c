package board

import "fmt"

// Encode maps (row, col) to the wire index row*size+col.
// This is the only formula used for outbound moves.
func Encode(row, col, size int) (int, error) {
	if size < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if row < 0 || row >= size || col < 0 || col >= size {
		return 0, fmt.Errorf("%w: (%d,%d) on %dx%d", ErrOutOfRange, row, col, size, size)
	}
	return row*size + col, nil
}

// Decode is the inverse of Encode.
func Decode(index, size int) (Coordinate, error) {
	if size < 1 {
		return Coordinate{}, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if index < 0 || index >= size*size {
		return Coordinate{}, fmt.Errorf("%w: index %d on %dx%d", ErrOutOfRange, index, size, size)
	}
	return Coordinate{Row: index / size, Col: index % size}, nil
}

// Index is Encode for an already built coordinate.
func (c Coordinate) Index(size int) (int, error) { return Encode(c.Row, c.Col, size) }
