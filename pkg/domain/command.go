package domain

// CommandKind enumerates the control commands accepted by the engine.
type CommandKind string

const (
	CommandPlay        CommandKind = "play"
	CommandStop        CommandKind = "stop"
	CommandReset       CommandKind = "reset"
	CommandJumpTo      CommandKind = "jump"
	CommandTempoNudge  CommandKind = "nudge"
	CommandVampRelease CommandKind = "release"
	CommandGo          CommandKind = "go"
	CommandHold        CommandKind = "hold"
	CommandNext        CommandKind = "next"
	CommandPrev        CommandKind = "prev"
	CommandChannelGain CommandKind = "gain"
	CommandChannelMute CommandKind = "mute"
	CommandSeekBeat    CommandKind = "seek"
	CommandJumpBeat    CommandKind = "jump_beat"
	CommandLoadCue     CommandKind = "load"
	CommandPlayrate    CommandKind = "playrate"
	CommandReload      CommandKind = "reload"
)

// Command is a single control instruction. Only the fields relevant to Kind are read.
type Command struct {
	Kind     CommandKind `json:"type" mapstructure:"type"`
	CueID    string      `json:"cue_id,omitempty" mapstructure:"cue_id"`
	DeltaBPM float64     `json:"delta_bpm,omitempty" mapstructure:"delta_bpm"`
	Channel  int         `json:"channel,omitempty" mapstructure:"channel"`
	GainDB   float64     `json:"gain_db,omitempty" mapstructure:"gain_db"`
	Mute     bool        `json:"mute,omitempty" mapstructure:"mute"`

	// Beat is relative to the entry of the current cue for seek and jump_beat.
	Beat float64 `json:"beat,omitempty" mapstructure:"beat"`
	// Index is a cue's position in show order, from zero.
	Index int `json:"index,omitempty" mapstructure:"index"`
	// Percent is the playback rate; 100 is the authored tempo.
	Percent int `json:"percent,omitempty" mapstructure:"percent"`

	// Source and Seq are stamped by the queue.
	Source string `json:"source,omitempty" mapstructure:"-"`
	Seq    uint64 `json:"seq,omitempty" mapstructure:"-"`

	// Payload carries a compiled show for CommandReload. It never crosses the network.
	Payload any `json:"-" mapstructure:"-"`
}

// Valid reports whether Kind is a known command.
func (k CommandKind) Valid() bool {
	switch k {
	case CommandPlay, CommandStop, CommandReset, CommandJumpTo, CommandTempoNudge,
		CommandVampRelease, CommandGo, CommandHold, CommandNext, CommandPrev,
		CommandChannelGain, CommandChannelMute, CommandSeekBeat, CommandJumpBeat,
		CommandLoadCue, CommandPlayrate, CommandReload:
		return true
	}
	return false
}

// Play, Stop and friends build the common commands.
func Play() Command                     { return Command{Kind: CommandPlay} }
func Stop() Command                     { return Command{Kind: CommandStop} }
func Reset() Command                    { return Command{Kind: CommandReset} }
func JumpTo(cueID string) Command       { return Command{Kind: CommandJumpTo, CueID: cueID} }
func TempoNudge(delta float64) Command  { return Command{Kind: CommandTempoNudge, DeltaBPM: delta} }
func VampRelease() Command              { return Command{Kind: CommandVampRelease} }
func GoCue() Command                    { return Command{Kind: CommandGo} }
func HoldAtBar() Command                { return Command{Kind: CommandHold} }
func ChannelGain(ch int, db float64) Command {
	return Command{Kind: CommandChannelGain, Channel: ch, GainDB: db}
}
func ChannelMute(ch int, mute bool) Command {
	return Command{Kind: CommandChannelMute, Channel: ch, Mute: mute}
}
func SeekBeat(beat float64) Command   { return Command{Kind: CommandSeekBeat, Beat: beat} }
func JumpBeat(beat float64) Command   { return Command{Kind: CommandJumpBeat, Beat: beat} }
func LoadCue(index int) Command       { return Command{Kind: CommandLoadCue, Index: index} }
func Playrate(percent int) Command    { return Command{Kind: CommandPlayrate, Percent: percent} }
