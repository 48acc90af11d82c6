package dto

import (
	"github.com/aretw0/cueline/pkg/domain"
)

// ShowFile is the on-disk shape of a show definition (YAML or JSON).
// It uses "mapstructure" tags so the same struct decodes files and frontmatter.
type ShowFile struct {
	Name        string                  `json:"name" mapstructure:"name"`
	SampleRate  int                     `json:"sample_rate" mapstructure:"sample_rate"`
	BeatsPerBar int                     `json:"beats_per_bar" mapstructure:"beats_per_bar"`
	Timecode    domain.TimecodeSettings `json:"timecode" mapstructure:"timecode"`
	Tempo       []domain.TempoMark      `json:"tempo" mapstructure:"tempo"`
	Cues        []CueMetadata           `json:"cues" mapstructure:"cues"`
	StartCue    string                  `json:"start_cue" mapstructure:"start_cue"`
}

// CueMetadata represents one cue as written by a show author.
//
// Positions can be given as absolute beats (entry/exit) or as 1-based bars with a
// length in bars. The exit policy has shorthands: "next" falls through, "vamp" holds
// (optionally "then" another cue) and "jump_to" jumps on Go. "policy" and "target" spell
// it out explicitly.
type CueMetadata struct {
	ID    string `json:"id" mapstructure:"id"`
	Name  string `json:"name" mapstructure:"name"`
	Index *int   `json:"index" mapstructure:"index"`

	Entry      *float64 `json:"entry" mapstructure:"entry"`
	Exit       *float64 `json:"exit" mapstructure:"exit"`
	Bar        *float64 `json:"bar" mapstructure:"bar"`
	LengthBars float64  `json:"length_bars" mapstructure:"length_bars"`

	Policy string `json:"policy" mapstructure:"policy"`
	Target string `json:"target" mapstructure:"target"`
	Next   string `json:"next" mapstructure:"next"`
	Vamp   bool   `json:"vamp" mapstructure:"vamp"`
	Then   string `json:"then" mapstructure:"then"`
	JumpTo string `json:"jump_to" mapstructure:"jump_to"`

	Tempo []domain.TempoOverride `json:"tempo" mapstructure:"tempo"`
	Clips []domain.ClipCue       `json:"clips" mapstructure:"clips"`
	Notes string                 `json:"notes" mapstructure:"notes"`
}
