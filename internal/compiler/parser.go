package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/cueline/internal/dto"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrInvalidShow wraps every authoring mistake found while parsing a show.
var ErrInvalidShow = errors.New("invalid show")

// Parser is responsible for converting raw show files into a domain.Show.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes data as YAML or JSON, chosen by the extension of name.
func (p *Parser) Parse(name string, data []byte) (*domain.Show, error) {
	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse show %s: %w", name, err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse show %s: %w", name, err)
		}
	}
	return p.ParseMap(raw)
}

// ParseMap decodes an already unmarshalled document.
func (p *Parser) ParseMap(raw map[string]any) (*domain.Show, error) {
	var file dto.ShowFile
	if err := Decode(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to decode show: %w", err)
	}
	return p.FromFile(file)
}

// Decode runs mapstructure with the weak typing authors expect ("120" is a tempo).
func Decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// FromFile normalises the author-facing shape into a domain.Show.
func (p *Parser) FromFile(f dto.ShowFile) (*domain.Show, error) {
	show := &domain.Show{
		Name:        f.Name,
		SampleRate:  f.SampleRate,
		BeatsPerBar: f.BeatsPerBar,
		Timecode:    f.Timecode,
		Tempo:       f.Tempo,
		StartCue:    f.StartCue,
	}
	if show.SampleRate == 0 {
		show.SampleRate = domain.DefaultSampleRate
	}
	if show.BeatsPerBar == 0 {
		show.BeatsPerBar = domain.DefaultBeatsPerBar
	}
	if show.Timecode.FPS == 0 {
		show.Timecode.FPS = domain.DefaultTimecodeRate
	}

	for i, c := range f.Cues {
		node, err := p.cue(c, i, show.BeatsPerBar)
		if err != nil {
			return nil, err
		}
		show.Cues = append(show.Cues, node)
	}
	return show, nil
}

func (p *Parser) cue(c dto.CueMetadata, i int, beatsPerBar int) (domain.CueNode, error) {
	if c.ID == "" {
		return domain.CueNode{}, fmt.Errorf("%w: cue %d has no id", ErrInvalidShow, i)
	}
	node := domain.CueNode{
		ID:    c.ID,
		Name:  c.Name,
		Index: i,
		Tempo: c.Tempo,
		Clips: c.Clips,
		Notes: c.Notes,
	}
	if c.Index != nil {
		node.Index = *c.Index
	}

	bpb := float64(beatsPerBar)
	switch {
	case c.Entry != nil:
		node.Entry = *c.Entry
	case c.Bar != nil:
		node.Entry = (*c.Bar - 1) * bpb
	}
	switch {
	case c.Exit != nil:
		node.Exit = *c.Exit
	case c.LengthBars > 0:
		node.Exit = node.Entry + c.LengthBars*bpb
	}

	policy, err := resolvePolicy(c)
	if err != nil {
		return domain.CueNode{}, err
	}
	node.Policy = policy
	return node, nil
}

// resolvePolicy picks the exit policy, giving the explicit form priority over shorthands.
func resolvePolicy(c dto.CueMetadata) (domain.ExitPolicy, error) {
	if c.Policy != "" {
		kind := domain.PolicyKind(c.Policy)
		switch kind {
		case domain.PolicyFallThrough, domain.PolicyVamp, domain.PolicyJump:
		default:
			return domain.ExitPolicy{}, fmt.Errorf("%w: cue %q has unknown policy %q", ErrInvalidShow, c.ID, c.Policy)
		}
		return domain.ExitPolicy{Kind: kind, Target: c.Target}, nil
	}

	switch {
	case c.Vamp:
		return domain.ExitPolicy{Kind: domain.PolicyVamp, Target: c.Then}, nil
	case c.JumpTo != "":
		return domain.ExitPolicy{Kind: domain.PolicyJump, Target: c.JumpTo}, nil
	default:
		return domain.ExitPolicy{Kind: domain.PolicyFallThrough, Target: c.Next}, nil
	}
}
