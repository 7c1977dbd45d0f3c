package board

// directions scanned for lines: vertical, horizontal, both diagonals.
var directions = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// Line returns the longest same-colored run through c, ordered from one end to
// the other. It returns nil when c is empty or the run is shorter than minLen.
// The board never decides a game; callers use this to highlight a line the
// server already declared.
func (b *Board) Line(c Coordinate, minLen int) []Coordinate {
	mark := b.At(c)
	if mark == Empty {
		return nil
	}
	var best []Coordinate
	for _, d := range directions {
		start := c
		for {
			prev := Coordinate{Row: start.Row - d[0], Col: start.Col - d[1]}
			if !prev.In(b.size) || b.At(prev) != mark {
				break
			}
			start = prev
		}
		var run []Coordinate
		for cur := start; cur.In(b.size) && b.At(cur) == mark; cur = (Coordinate{Row: cur.Row + d[0], Col: cur.Col + d[1]}) {
			run = append(run, cur)
		}
		if len(run) > len(best) {
			best = run
		}
	}
	if len(best) < minLen {
		return nil
	}
	return best
}
