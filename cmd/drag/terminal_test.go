package main

import (
	"bytes"
	"testing"

	"github.com/cbodonnell/drag/pkg/drawing"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStroke(t *testing.T) {
	stroke, err := parseStroke("0,1  0.35,0.4")
	require.NoError(t, err)
	assert.Equal(t, drawing.Stroke{{X: 0, Y: 1}, {X: 0.35, Y: 0.4}}, stroke)
	assert.Equal(t, "0,1 0.35,0.4", formatStroke(stroke))

	for _, line := range []string{"1", "1,2,3", "a,b", "50,99 -3,7", "0.5,1.2"} {
		_, err := parseStroke(line)
		assert.Error(t, err, line)
	}
}

func TestPrintRecord(t *testing.T) {
	record := types.NewGameRecord("ABCDEF", 5, 60, "en")
	record.JoinedPlayers[0] = &types.PlayerInfo{Name: "ana", Slot: 0}
	record.JoinedPlayers[2] = &types.PlayerInfo{Name: "carla", Slot: 2}
	record.JoinedPlayers[1] = nil

	var out bytes.Buffer
	printRecord(&out, record)
	assert.Equal(t, "ABCDEF WAITING 2/5 [ana, carla]\n", out.String())
}

func TestRandomStrokeIsDrawable(t *testing.T) {
	for i := 0; i < 20; i++ {
		stroke := randomStroke()
		require.NotEmpty(t, stroke)
		assert.NoError(t, stroke.Validate())
	}
}
