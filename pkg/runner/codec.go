package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/muesli/termenv"
)

// ErrUnknownCommand is returned for a line that names no command.
var ErrUnknownCommand = errors.New("unknown command")

// Request is one decoded line.
type Request struct {
	Command domain.Command
	Status  bool
	Help    bool
}

// Reply answers one line.
type Reply struct {
	Seq    uint64           `json:"seq,omitempty"`
	Result string           `json:"result"`
	Kind   string           `json:"type,omitempty"`
	Error  string           `json:"error,omitempty"`
	Status *domain.Snapshot `json:"status,omitempty"`
}

// Results reported in Reply.Result.
const (
	ResultApplied  = "applied"
	ResultQueued   = "queued"
	ResultRejected = "rejected"
	ResultStatus   = "status"
	ResultHelp     = "help"
)

// Codec translates between lines and requests or replies.
type Codec interface {
	Decode(line string) (Request, error)
	Encode(w io.Writer, r Reply) error
}

// JSONCodec speaks JSON lines. Command fields follow the HTTP API.
type JSONCodec struct{}

// Decode implements Codec.
func (JSONCodec) Decode(line string) (Request, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Request{}, fmt.Errorf("invalid json: %w", err)
	}
	switch raw["type"] {
	case "status":
		return Request{Status: true}, nil
	case "help":
		return Request{Help: true}, nil
	}
	var cmd domain.Command
	if err := compiler.Decode(raw, &cmd); err != nil {
		return Request{}, fmt.Errorf("invalid command: %w", err)
	}
	if err := check(cmd); err != nil {
		return Request{}, err
	}
	return Request{Command: cmd}, nil
}

// Encode implements Codec.
func (JSONCodec) Encode(w io.Writer, r Reply) error {
	return json.NewEncoder(w).Encode(r)
}

func check(cmd domain.Command) error {
	if !cmd.Kind.Valid() || cmd.Kind == domain.CommandReload {
		return fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Kind)
	}
	if cmd.Kind == domain.CommandJumpTo && cmd.CueID == "" {
		return errors.New("jump needs a cue id")
	}
	return nil
}

// TextCodec speaks short words for operators.
type TextCodec struct{}

var words = map[string]domain.Command{
	"play":    domain.Play(),
	"stop":    domain.Stop(),
	"reset":   domain.Reset(),
	"go":      domain.GoCue(),
	"hold":    domain.HoldAtBar(),
	"release": domain.VampRelease(),
	"next":    {Kind: domain.CommandNext},
	"prev":    {Kind: domain.CommandPrev},
}

// Help lists the words TextCodec understands.
const Help = "play | stop | reset | go | hold | release | next | prev | jump <cue> | load <index> | seek <beat> | jumpbeat <beat> | nudge <bpm> | rate <percent> | gain <channel> <db> | mute <channel> [off] | status"

// Decode implements Codec.
func (TextCodec) Decode(line string) (Request, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Request{}, ErrUnknownCommand
	}
	if cmd, ok := words[fields[0]]; ok && len(fields) == 1 {
		return Request{Command: cmd}, nil
	}

	switch fields[0] {
	case "status", "?":
		return Request{Status: true}, nil
	case "help":
		return Request{Help: true}, nil
	case "jump":
		if len(fields) != 2 {
			return Request{}, errors.New("usage: jump <cue>")
		}
		// Cue ids keep their case.
		return Request{Command: domain.JumpTo(strings.Fields(line)[1])}, nil
	case "nudge":
		if len(fields) != 2 {
			return Request{}, errors.New("usage: nudge <bpm>")
		}
		delta, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Request{}, fmt.Errorf("invalid tempo delta %q", fields[1])
		}
		return Request{Command: domain.TempoNudge(delta)}, nil
	case "gain":
		if len(fields) != 3 {
			return Request{}, errors.New("usage: gain <channel> <db>")
		}
		ch, err := strconv.Atoi(fields[1])
		if err != nil {
			return Request{}, fmt.Errorf("invalid channel %q", fields[1])
		}
		db, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Request{}, fmt.Errorf("invalid gain %q", fields[2])
		}
		return Request{Command: domain.ChannelGain(ch, db)}, nil
	case "mute":
		if len(fields) < 2 || len(fields) > 3 || (len(fields) == 3 && fields[2] != "off" && fields[2] != "on") {
			return Request{}, errors.New("usage: mute <channel> [on|off]")
		}
		ch, err := strconv.Atoi(fields[1])
		if err != nil {
			return Request{}, fmt.Errorf("invalid channel %q", fields[1])
		}
		return Request{Command: domain.ChannelMute(ch, len(fields) == 2 || fields[2] == "on")}, nil
	case "load":
		if len(fields) != 2 {
			return Request{}, errors.New("usage: load <index>")
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return Request{}, fmt.Errorf("invalid cue index %q", fields[1])
		}
		return Request{Command: domain.LoadCue(idx)}, nil
	case "seek", "jumpbeat":
		if len(fields) != 2 {
			return Request{}, fmt.Errorf("usage: %s <beat>", fields[0])
		}
		beat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Request{}, fmt.Errorf("invalid beat %q", fields[1])
		}
		if fields[0] == "seek" {
			return Request{Command: domain.SeekBeat(beat)}, nil
		}
		return Request{Command: domain.JumpBeat(beat)}, nil
	case "rate":
		if len(fields) != 2 {
			return Request{}, errors.New("usage: rate <percent>")
		}
		pct, err := strconv.Atoi(strings.TrimSuffix(fields[1], "%"))
		if err != nil {
			return Request{}, fmt.Errorf("invalid playrate %q", fields[1])
		}
		return Request{Command: domain.Playrate(pct)}, nil
	}
	return Request{}, fmt.Errorf("%w %q", ErrUnknownCommand, fields[0])
}

// Encode implements Codec. Colors are used only when w is a terminal.
func (TextCodec) Encode(w io.Writer, r Reply) error {
	out := termenv.NewOutput(w)
	var line string
	switch r.Result {
	case ResultApplied:
		line = out.String("ok").Foreground(out.Color("2")).String() + " " + r.Kind
	case ResultQueued:
		line = out.String("queued").Foreground(out.Color("3")).String() + " " + r.Kind
		if r.Error != "" {
			line += ": " + r.Error
		}
	case ResultRejected:
		line = out.String("error").Foreground(out.Color("1")).String()
		if r.Kind != "" {
			line += " " + r.Kind
		}
		line += ": " + r.Error
	case ResultHelp:
		line = Help
	case ResultStatus:
		line = formatStatus(r.Status)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func formatStatus(s *domain.Snapshot) string {
	if s == nil {
		return "no status"
	}
	line := fmt.Sprintf("%s %s bar %d beat %d %.2f bpm %s",
		strings.ToUpper(string(s.State)), s.CueID, s.Musical.Bar, s.Musical.Beat, s.TempoBPM, s.Timecode)
	if s.Playrate != 0 && s.Playrate != 100 {
		line += fmt.Sprintf(" @%d%%", s.Playrate)
	}
	if s.Armed {
		line += " [armed]"
	}
	if s.Halted {
		line += " HALTED: " + s.Diagnostic
	} else if s.Diagnostic != "" {
		line += " (" + s.Diagnostic + ")"
	}
	return line
}
