package drawing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		board Board
		want  string
	}{
		{
			name:  "blank board",
			board: Board{},
			want:  "",
		},
		{
			name: "two strokes",
			board: NewBoard(
				Stroke{{X: 0, Y: 0}, {X: 1, Y: 1}},
				Stroke{{X: 0.5, Y: 0.5}},
			),
			want: "(0,0):(1,1):;(0.5,0.5):;",
		},
		{
			name:  "high precision coordinates",
			board: NewBoard(Stroke{{X: 0.123456789012345, Y: 1e-7}}),
			want:  "(0.123456789012345,1e-07):;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.board.Encode()
			assert.Equal(t, tt.want, encoded)

			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.True(t, decoded.Equal(tt.board), "decoded %v, want %v", decoded, tt.board)
			assert.Equal(t, tt.board.Strokes(), decoded.Strokes())
		})
	}
}

func TestDecodeRejectsMalformedPoints(t *testing.T) {
	for _, in := range []string{"(0,0", "(a,1):;", "(1):;", "(1,2,3):;"} {
		_, err := Decode(in)
		assert.Error(t, err, in)
	}
}

func TestWithStrokeDoesNotAlias(t *testing.T) {
	stroke := Stroke{{X: 0.1, Y: 0.2}}
	blank := Board{}
	board := blank.WithStroke(stroke)
	stroke[0].X = 0.9

	assert.True(t, blank.IsBlank())
	assert.Equal(t, 0.1, board.Strokes()[0][0].X)
	assert.Equal(t, 1, board.WithStroke(nil).Len())
}

func TestPointsStayOnTheBoard(t *testing.T) {
	for _, p := range []Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0.25, Y: 0.75}} {
		assert.True(t, p.Valid(), p.String())
	}
	for _, p := range []Point{{X: -0.1, Y: 0.5}, {X: 0.5, Y: 1.01}, {X: 50, Y: 99}, {X: math.NaN(), Y: 0}, {X: 0, Y: math.Inf(1)}} {
		assert.False(t, p.Valid(), p.String())
	}

	assert.NoError(t, Stroke{{X: 0, Y: 1}, {X: 0.5, Y: 0.5}}.Validate())
	assert.Error(t, Stroke{{X: 0.5, Y: 0.5}, {X: -3, Y: 7}}.Validate())

	for _, in := range []string{"(50,99):(-3,7):;", "(0.5,0.5):;(1.5,0):;", "(NaN,0):;"} {
		_, err := Decode(in)
		assert.Error(t, err, in)
	}
}
