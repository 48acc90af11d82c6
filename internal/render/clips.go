package render

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// ErrUnsupportedClip is returned for media files the bank cannot decode.
var ErrUnsupportedClip = errors.New("unsupported clip format")

// resampleQuality trades CPU for fidelity when a clip's rate differs from the show's.
// Clips are converted once at load time.
const resampleQuality = 4

type clipKey struct{ channel, clip int }

// Bank is a set of preloaded mono clips addressed by (channel, clip). Get is lock-free
// and may be called from the audio callback; Put swaps in a new map.
type Bank struct {
	mu    sync.Mutex
	clips atomic.Pointer[map[clipKey][]float32]
}

// NewBank returns an empty bank.
func NewBank() *Bank {
	b := &Bank{}
	b.clips.Store(&map[clipKey][]float32{})
	return b
}

// Get returns the samples of a clip.
func (b *Bank) Get(channel, clip int) ([]float32, bool) {
	buf, ok := (*b.clips.Load())[clipKey{channel, clip}]
	return buf, ok
}

// Put stores samples for a clip, replacing any previous buffer.
func (b *Bank) Put(channel, clip int, samples []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := *b.clips.Load()
	next := make(map[clipKey][]float32, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[clipKey{channel, clip}] = samples
	b.clips.Store(&next)
}

// Len returns the number of loaded clips.
func (b *Bank) Len() int { return len(*b.clips.Load()) }

// ClipPath is where a WAV clip lives under a media directory. An .mp3 file with the same
// stem is read too.
func ClipPath(dir string, channel, clip int) string {
	return filepath.Join(dir, fmt.Sprintf("%03d", channel), fmt.Sprintf("%03d.wav", clip))
}

func clipExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".mp3":
		return true
	}
	return false
}

// LoadDir reads every dir/CCC/NNN.wav (or .mp3) into the bank, converted to sampleRate.
// Unreadable files are logged and skipped; the returned count is the number of clips
// loaded.
func (b *Bank) LoadDir(dir string, sampleRate int, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	chans, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading media dir: %w", err)
	}

	loaded := 0
	for _, cd := range chans {
		channel, err := strconv.Atoi(cd.Name())
		if !cd.IsDir() || err != nil || channel < 0 {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, cd.Name()))
		if err != nil {
			logger.Warn("skipping media channel", "channel", channel, "err", err)
			continue
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !clipExt(name) {
				continue
			}
			clip, err := strconv.Atoi(strings.TrimSuffix(name, filepath.Ext(name)))
			if err != nil {
				continue
			}
			path := filepath.Join(dir, cd.Name(), name)
			samples, err := ReadClip(path, sampleRate)
			if err != nil {
				logger.Warn("skipping clip", "path", path, "err", err)
				continue
			}
			b.Put(channel, clip, samples)
			loaded++
		}
	}
	logger.Debug("clips loaded", "dir", dir, "count", loaded)
	return loaded, nil
}

// ReadClip decodes a WAV or MP3 file to mono float32 at sampleRate.
func ReadClip(path string, sampleRate int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var stream beep.StreamSeekCloser
	var format beep.Format
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		stream, format, err = wav.Decode(f)
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedClip, ext)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	defer stream.Close()
	return Mixdown(stream, format, sampleRate)
}

// DecodeWAV reads a WAV stream to mono float32 at sampleRate.
func DecodeWAV(r io.Reader, sampleRate int) ([]float32, error) {
	stream, format, err := wav.Decode(r)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return Mixdown(stream, format, sampleRate)
}

// Mixdown drains stream, resampling it from format's rate to sampleRate when they
// differ, and averages the two channels. Mono sources decode with both channels equal.
func Mixdown(stream beep.Streamer, format beep.Format, sampleRate int) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedClip, sampleRate)
	}
	src := stream
	var resampler *beep.Resampler
	if int(format.SampleRate) != sampleRate {
		resampler = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(sampleRate), stream)
		src = resampler
	}

	buf := make([][2]float64, 512)
	var out []float32
	for {
		n, ok := src.Stream(buf)
		for _, f := range buf[:n] {
			out = append(out, float32((f[0]+f[1])/2))
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	if resampler != nil {
		if err := resampler.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
