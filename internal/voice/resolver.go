// Package voice turns spoken or typed move descriptions into board coordinates.
package voice

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/park285/doljabi-session/internal/board"
)

// ErrParseFailure means the utterance did not name a cell on the board.
var ErrParseFailure = errors.New("utterance not recognized as a coordinate")

var alphaNumeric = regexp.MustCompile(`^([A-Z])([0-9]{1,2})$`)
var twoLetters = regexp.MustCompile(`^([A-Z])([A-Z])$`)

// Resolver is safe for concurrent use after construction.
type Resolver struct {
	vocab  *Vocabulary
	rowCol *regexp.Regexp
	logger *zap.Logger
}

func NewResolver(v *Vocabulary, logger *zap.Logger) (*Resolver, error) {
	if v == nil {
		return nil, errors.New("voice: vocabulary is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if v.letterOrder == nil {
		v.index()
	}

	var word strings.Builder
	word.WriteString(`[0-9]+`)
	if alts := numberAlternation(v); alts != "" {
		word.WriteString(`|(?:` + alts + `)+`)
	}
	pattern := fmt.Sprintf(`^(%s)%s(%s)%s$`,
		word.String(), regexp.QuoteMeta(v.Markers.Row),
		word.String(), regexp.QuoteMeta(v.Markers.Col))
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("voice: compile row/col pattern: %w", err)
	}
	return &Resolver{vocab: v, rowCol: re, logger: logger}, nil
}

func numberAlternation(v *Vocabulary) string {
	words := make([]string, 0, len(v.Numerals)+1)
	for w := range v.Numerals {
		words = append(words, regexp.QuoteMeta(w))
	}
	if v.Ten != "" {
		words = append(words, regexp.QuoteMeta(v.Ten))
	}
	return strings.Join(words, "|")
}

// ResolveUtterance maps text such as "A4", "3행5열", "에이4" or "PE" to a
// 0-based coordinate. Letters name the column (A=0); the number is the
// 1-based row.
func (r *Resolver) ResolveUtterance(text string, size int) (board.Coordinate, error) {
	compact := normalize(text)
	if compact == "" {
		return board.Coordinate{}, fmt.Errorf("%w: empty", ErrParseFailure)
	}

	if c, ok := r.alpha(compact, size); ok {
		return c, nil
	}
	if c, ok, matched := r.explicit(compact, size); matched {
		if !ok {
			return board.Coordinate{}, fmt.Errorf("%w: %q off a %dx%d board", ErrParseFailure, text, size, size)
		}
		return c, nil
	}
	if rewritten, ok := r.correct(compact); ok {
		r.logger.Debug("voice_homophone_rewrite", zap.String("in", compact), zap.String("out", rewritten))
		if c, ok := r.alpha(rewritten, size); ok {
			return c, nil
		}
	}
	return board.Coordinate{}, fmt.Errorf("%w: %q", ErrParseFailure, text)
}

func normalize(text string) string {
	var b strings.Builder
	for _, ch := range text {
		if unicode.IsSpace(ch) {
			continue
		}
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *Resolver) alpha(s string, size int) (board.Coordinate, bool) {
	m := alphaNumeric.FindStringSubmatch(s)
	if m == nil {
		return board.Coordinate{}, false
	}
	col := int(m[1][0]-'A') + 1
	row, _ := parseDigits(m[2])
	return human(row, col, size)
}

// explicit handles the "<row><rowMarker><col><colMarker>" form. matched
// reports whether the phrase had that shape at all.
func (r *Resolver) explicit(s string, size int) (board.Coordinate, bool, bool) {
	m := r.rowCol.FindStringSubmatch(s)
	if m == nil {
		return board.Coordinate{}, false, false
	}
	row, okR := r.vocab.Number(m[1])
	col, okC := r.vocab.Number(m[2])
	if !okR || !okC {
		return board.Coordinate{}, false, true
	}
	c, ok := human(row, col, size)
	return c, ok, true
}

// correct rewrites homophone forms to letter+digits.
func (r *Resolver) correct(s string) (string, bool) {
	if m := twoLetters.FindStringSubmatch(s); m != nil {
		if n, ok := r.vocab.Homophones[m[2]]; ok {
			return fmt.Sprintf("%s%d", m[1], n), true
		}
		return "", false
	}
	if strings.Contains(s, r.vocab.Markers.Row) || strings.Contains(s, r.vocab.Markers.Col) {
		return "", false
	}
	for _, name := range r.vocab.letterOrder {
		if !strings.HasPrefix(s, name) {
			continue
		}
		if n, ok := r.vocab.Number(strings.TrimPrefix(s, name)); ok {
			return fmt.Sprintf("%s%d", r.vocab.Letters[name], n), true
		}
	}
	return "", false
}

// human converts 1-based (row, col) to a board coordinate.
func human(row, col, size int) (board.Coordinate, bool) {
	if row < 1 || row > size || col < 1 || col > size {
		return board.Coordinate{}, false
	}
	return board.Coordinate{Row: row - 1, Col: col - 1}, true
}
