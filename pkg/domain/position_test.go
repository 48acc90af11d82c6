package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimecode_JSONLabel(t *testing.T) {
	snap := Snapshot{State: StatePlaying, Timecode: Timecode{Hours: 1, Minutes: 2, Seconds: 3, Frames: 4, Rate: 25}}

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"timecode":"01:02:03:04"`)

	var back Snapshot
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Timecode{Hours: 1, Minutes: 2, Seconds: 3, Frames: 4}, back.Timecode, "rate is not part of the label")

	var tc Timecode
	assert.Error(t, tc.UnmarshalText([]byte("soon")))
}
