package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	playing := StatePlaying
	vamping := StateVamping
	cueB := "B"
	nameB := "Verse"
	tempo := 96.0
	yes := true
	diag := `unknown cue "Z"`

	tests := []struct {
		name     string
		old      *Snapshot
		new      *Snapshot
		wantDiff *SnapshotDiff
	}{
		{
			name: "No Change",
			old:  &Snapshot{Tick: 1, State: StatePlaying, CueID: "A", TempoBPM: 120, Musical: MusicalPosition{Bar: 1, Beat: 2, Fraction: 0.1}},
			new:  &Snapshot{Tick: 2, State: StatePlaying, CueID: "A", TempoBPM: 120, Musical: MusicalPosition{Bar: 1, Beat: 2, Fraction: 0.4}},
		},
		{
			name: "Initial Load",
			old:  nil,
			new:  &Snapshot{Tick: 0, State: StatePlaying, CueID: "B", CueName: "Verse", TempoBPM: 96, Musical: MusicalPosition{Bar: 1, Beat: 1}},
			wantDiff: &SnapshotDiff{
				Tick:     0,
				State:    &playing,
				CueID:    &cueB,
				CueName:  &nameB,
				Musical:  &MusicalPosition{Bar: 1, Beat: 1},
				TempoBPM: &tempo,
			},
		},
		{
			name: "Cue Changed",
			old:  &Snapshot{Tick: 5, State: StatePlaying, CueID: "A", TempoBPM: 96, Musical: MusicalPosition{Bar: 3, Beat: 1}},
			new:  &Snapshot{Tick: 6, State: StatePlaying, CueID: "B", CueName: "Verse", TempoBPM: 96, Musical: MusicalPosition{Bar: 3, Beat: 1}},
			wantDiff: &SnapshotDiff{
				Tick:    6,
				CueID:   &cueB,
				CueName: &nameB,
			},
		},
		{
			name: "Entered Vamp",
			old:  &Snapshot{Tick: 9, State: StatePlaying, CueID: "B", TempoBPM: 96, Musical: MusicalPosition{Bar: 5, Beat: 1}},
			new:  &Snapshot{Tick: 10, State: StateVamping, CueID: "B", TempoBPM: 96, Armed: true, Musical: MusicalPosition{Bar: 5, Beat: 1}},
			wantDiff: &SnapshotDiff{
				Tick:  10,
				State: &vamping,
				Armed: &yes,
			},
		},
		{
			name: "Halted With Diagnostic",
			old:  &Snapshot{Tick: 1, State: StatePlaying, TempoBPM: 96},
			new:  &Snapshot{Tick: 2, State: StatePlaying, TempoBPM: 96, Halted: true, Diagnostic: diag},
			wantDiff: &SnapshotDiff{
				Tick:       2,
				Halted:     &yes,
				Diagnostic: &diag,
			},
		},
		{
			name: "Tempo Drift Below Threshold",
			old:  &Snapshot{Tick: 1, State: StatePlaying, TempoBPM: 96},
			new:  &Snapshot{Tick: 2, State: StatePlaying, TempoBPM: 96.004},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantDiff, got)
		})
	}
}

func TestDiff_JSONOmitsUnchanged(t *testing.T) {
	old := &Snapshot{Tick: 1, State: StatePlaying, CueID: "A", TempoBPM: 120}
	next := &Snapshot{Tick: 2, State: StateStopped, CueID: "A", TempoBPM: 120}

	raw, err := json.Marshal(Diff(old, next))
	require.NoError(t, err)
	assert.JSONEq(t, `{"tick":2,"state":"stopped"}`, string(raw))
}
