package drawing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	pointSeparator  = ":"
	strokeSeparator = ";"
)

// Point is a position on the board. Coordinates are normalized to [0,1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string {
	return "(" + formatCoord(p.X) + "," + formatCoord(p.Y) + ")"
}

// Valid reports whether both coordinates are finite and within [0,1].
func (p Point) Valid() bool {
	return inUnit(p.X) && inUnit(p.Y)
}

// Stroke is one continuous line.
type Stroke []Point

// Validate returns an error naming the first point outside the board.
func (s Stroke) Validate() error {
	for i, p := range s {
		if !p.Valid() {
			return fmt.Errorf("point %d %s is outside the board", i, p)
		}
	}
	return nil
}

// Board is an ordered sequence of strokes. The zero value is a blank board.
type Board struct {
	strokes []Stroke
}

func NewBoard(strokes ...Stroke) Board {
	b := Board{}
	for _, s := range strokes {
		b = b.WithStroke(s)
	}
	return b
}

// WithStroke returns a new board with stroke appended. Empty strokes are ignored.
func (b Board) WithStroke(stroke Stroke) Board {
	if len(stroke) == 0 {
		return b
	}
	strokes := make([]Stroke, 0, len(b.strokes)+1)
	strokes = append(strokes, b.strokes...)
	copied := make(Stroke, len(stroke))
	copy(copied, stroke)
	strokes = append(strokes, copied)
	return Board{strokes: strokes}
}

// Strokes returns a copy of the board's strokes.
func (b Board) Strokes() []Stroke {
	out := make([]Stroke, len(b.strokes))
	for i, s := range b.strokes {
		out[i] = append(Stroke(nil), s...)
	}
	return out
}

func (b Board) Len() int {
	return len(b.strokes)
}

func (b Board) IsBlank() bool {
	return len(b.strokes) == 0
}

func (b Board) Equal(other Board) bool {
	if len(b.strokes) != len(other.strokes) {
		return false
	}
	for i := range b.strokes {
		if len(b.strokes[i]) != len(other.strokes[i]) {
			return false
		}
		for j := range b.strokes[i] {
			if b.strokes[i][j] != other.strokes[i][j] {
				return false
			}
		}
	}
	return true
}

// Encode returns the textual form of the board: every point is written as
// "(x,y)" followed by ":", every stroke is terminated by ";".
func (b Board) Encode() string {
	var sb strings.Builder
	for _, stroke := range b.strokes {
		for _, p := range stroke {
			sb.WriteString(p.String())
			sb.WriteString(pointSeparator)
		}
		sb.WriteString(strokeSeparator)
	}
	return sb.String()
}

func (b Board) String() string {
	return b.Encode()
}

// Decode parses the textual form produced by Encode.
func Decode(encoded string) (Board, error) {
	board := Board{}
	for _, rawStroke := range strings.Split(encoded, strokeSeparator) {
		if strings.TrimSpace(rawStroke) == "" {
			continue
		}
		var stroke Stroke
		for _, rawPoint := range strings.Split(rawStroke, pointSeparator) {
			if strings.TrimSpace(rawPoint) == "" {
				continue
			}
			p, err := parsePoint(rawPoint)
			if err != nil {
				return Board{}, err
			}
			if !p.Valid() {
				return Board{}, fmt.Errorf("point %s is outside the board", p)
			}
			stroke = append(stroke, p)
		}
		board.strokes = append(board.strokes, stroke)
	}
	return board, nil
}

func parsePoint(raw string) (Point, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 5 || raw[0] != '(' || raw[len(raw)-1] != ')' {
		return Point{}, fmt.Errorf("malformed point %q", raw)
	}
	parts := strings.Split(raw[1:len(raw)-1], ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("malformed point %q", raw)
	}
	x, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("malformed x in point %q: %w", raw, err)
	}
	y, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("malformed y in point %q: %w", raw, err)
	}
	return Point{X: x, Y: y}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
