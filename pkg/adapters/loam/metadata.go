package loam

import "github.com/aretw0/cueline/pkg/domain"

// KindShow marks the document carrying the show header and tempo plan.
const KindShow = "show"

// SheetMetadata is the frontmatter of a cue-sheet document. Cue documents use the cue
// keys; the single show document (kind: show, or a file named show.md) uses the show
// keys. Tempo is decoded per document kind: marks for the show, overrides for a cue.
type SheetMetadata struct {
	Kind string `json:"kind" mapstructure:"kind"`
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`

	// Show header.
	SampleRate  int                     `json:"sample_rate" mapstructure:"sample_rate"`
	BeatsPerBar int                     `json:"beats_per_bar" mapstructure:"beats_per_bar"`
	Timecode    domain.TimecodeSettings `json:"timecode" mapstructure:"timecode"`
	StartCue    string                  `json:"start_cue" mapstructure:"start_cue"`

	// Cue placement and exit policy, with the same shorthands as show files.
	Index      *int     `json:"index" mapstructure:"index"`
	Entry      *float64 `json:"entry" mapstructure:"entry"`
	Exit       *float64 `json:"exit" mapstructure:"exit"`
	Bar        *float64 `json:"bar" mapstructure:"bar"`
	LengthBars float64  `json:"length_bars" mapstructure:"length_bars"`
	Policy     string   `json:"policy" mapstructure:"policy"`
	Target     string   `json:"target" mapstructure:"target"`
	Next       string   `json:"next" mapstructure:"next"`
	Vamp       bool     `json:"vamp" mapstructure:"vamp"`
	Then       string   `json:"then" mapstructure:"then"`
	JumpTo     string   `json:"jump_to" mapstructure:"jump_to"`

	Clips []domain.ClipCue `json:"clips" mapstructure:"clips"`
	Tempo []map[string]any `json:"tempo" mapstructure:"tempo"`
}
