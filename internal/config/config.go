// Package config loads the cueline runtime configuration.
//
// A config file (YAML, or JSON by extension) is read into a generic map and decoded with
// mapstructure, so the same path serves files and the flat "section.key" overrides the
// CLI collects from flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/cueline/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is looked up in the working directory when no --config is given.
const DefaultPath = "cueline.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Audio struct {
	// Driver is "ebiten" for the sound card or "null" for a paced silent host.
	Driver string `mapstructure:"driver" json:"driver"`
	// Left and Right pick the channels routed to the stereo output.
	Left  int `mapstructure:"left" json:"left"`
	Right int `mapstructure:"right" json:"right"`
}

type Channels struct {
	Click int `mapstructure:"click" json:"click"`
	LTC   int `mapstructure:"ltc" json:"ltc"`
}

type Timecode struct {
	FPS   int    `mapstructure:"fps" json:"fps"`
	Start string `mapstructure:"start" json:"start"`
}

type HTTP struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

type Redis struct {
	Addr   string        `mapstructure:"addr" json:"addr"`
	Prefix string        `mapstructure:"prefix" json:"prefix"`
	TTL    time.Duration `mapstructure:"ttl" json:"ttl"`
}

type MIDI struct {
	Port string `mapstructure:"port" json:"port"`
}

type Log struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Config is the full runtime configuration.
type Config struct {
	SampleRate    int      `mapstructure:"sample_rate" json:"sample_rate"`
	BlockSize     int      `mapstructure:"block_size" json:"block_size"`
	QueueCapacity int      `mapstructure:"queue_capacity" json:"queue_capacity"`
	MediaDir      string   `mapstructure:"media_dir" json:"media_dir"`
	Audio         Audio    `mapstructure:"audio" json:"audio"`
	Channels      Channels `mapstructure:"channels" json:"channels"`
	Timecode      Timecode `mapstructure:"timecode" json:"timecode"`
	HTTP          HTTP     `mapstructure:"http" json:"http"`
	Metrics       Metrics  `mapstructure:"metrics" json:"metrics"`
	Redis         Redis    `mapstructure:"redis" json:"redis"`
	MIDI          MIDI     `mapstructure:"midi" json:"midi"`
	Log           Log      `mapstructure:"log" json:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		SampleRate:    domain.DefaultSampleRate,
		BlockSize:     256,
		QueueCapacity: 64,
		MediaDir:      "playback_media",
		Audio:         Audio{Driver: "ebiten", Left: 0, Right: 1},
		Channels:      Channels{Click: 0, LTC: 1},
		Timecode:      Timecode{FPS: domain.DefaultTimecodeRate},
		HTTP:          HTTP{Addr: ":8080"},
		Metrics:       Metrics{Enabled: true},
		Redis:         Redis{Prefix: "cueline:", TTL: time.Hour},
		Log:           Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}
	if err := decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return cfg, cfg.Validate()
}

// Apply overlays flat overrides such as {"http.addr": ":9000", "audio.driver": "null"}.
func (c *Config) Apply(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	nested := map[string]any{}
	for key, v := range overrides {
		parts := strings.Split(key, ".")
		m := nested
		for _, p := range parts[:len(parts)-1] {
			sub, ok := m[p].(map[string]any)
			if !ok {
				sub = map[string]any{}
				m[p] = sub
			}
			m = sub
		}
		m[parts[len(parts)-1]] = v
	}
	if err := decode(nested, c); err != nil {
		return fmt.Errorf("applying overrides: %w", err)
	}
	return c.Validate()
}

func decode(raw map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Validate checks ranges the engine depends on.
func (c Config) Validate() error {
	var problems []string
	if c.SampleRate <= 0 {
		problems = append(problems, fmt.Sprintf("sample_rate must be positive, got %d", c.SampleRate))
	}
	if c.BlockSize <= 0 || c.BlockSize > 8192 {
		problems = append(problems, fmt.Sprintf("block_size must be in 1..8192, got %d", c.BlockSize))
	}
	switch c.Timecode.FPS {
	case 24, 25, 30:
	default:
		problems = append(problems, fmt.Sprintf("timecode.fps must be 24, 25 or 30, got %d", c.Timecode.FPS))
	}
	switch c.Audio.Driver {
	case "ebiten", "null":
	default:
		problems = append(problems, fmt.Sprintf("audio.driver must be ebiten or null, got %q", c.Audio.Driver))
	}
	for name, ch := range map[string]int{
		"audio.left": c.Audio.Left, "audio.right": c.Audio.Right,
		"channels.click": c.Channels.Click, "channels.ltc": c.Channels.LTC,
	} {
		if ch < 0 || ch >= domain.Channels {
			problems = append(problems, fmt.Sprintf("%s must be in 0..%d, got %d", name, domain.Channels-1, ch))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}
