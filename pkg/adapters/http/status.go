package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/aretw0/cueline/pkg/domain"
	"github.com/oapi-codegen/runtime"
)

// GetStatus handles GET /status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.ctl.Status())
}

// ListCues handles GET /cues.
func (s *Server) ListCues(w http.ResponseWriter, r *http.Request) {
	cues := []domain.CueNode{}
	if show := s.ctl.Show(); show != nil {
		cues = append(cues, show.Cues...)
	}
	writeJSON(w, s.logger, http.StatusOK, cues)
}

// GetTempo handles GET /tempo.
func (s *Server) GetTempo(w http.ResponseWriter, r *http.Request) {
	segs := s.ctl.Tempo()
	if segs == nil {
		segs = []domain.TempoSegment{}
	}
	writeJSON(w, s.logger, http.StatusOK, segs)
}

// GetTempoSegment handles GET /tempo/segment?sample=N.
func (s *Server) GetTempoSegment(w http.ResponseWriter, r *http.Request) {
	var sample int64
	if err := runtime.BindQueryParameter("form", true, true, "sample", r.URL.Query(), &sample); err != nil {
		s.badRequest(w, err)
		return
	}
	seg, ok := SegmentAt(s.ctl.Tempo(), domain.SamplePosition(sample))
	if !ok {
		http.Error(w, "no tempo map loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"segment": seg,
		"bpm":     seg.TempoAt(sample - int64(seg.Start)),
	})
}

// SegmentAt finds the segment in effect at pos in a sorted segment list.
func SegmentAt(segs []domain.TempoSegment, pos domain.SamplePosition) (domain.TempoSegment, bool) {
	if len(segs) == 0 {
		return domain.TempoSegment{}, false
	}
	i := sort.Search(len(segs), func(i int) bool { return segs[i].Start > pos })
	if i == 0 {
		return segs[0], true
	}
	return segs[i-1], true
}

// SubscribeEvents handles the GET /events request (SSE). The first message carries the
// full snapshot, later ones only what changed.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	var watch []string
	if v := r.URL.Query().Get("watch"); v != "" {
		for _, f := range strings.Split(v, ",") {
			watch = append(watch, strings.TrimSpace(f))
		}
	}

	updates, cancel := s.ctl.Watch()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")

	last := s.ctl.Status()
	if err := s.send(w, domain.Diff(nil, &last)); err != nil {
		return
	}
	flusher.Flush()

	s.logger.Debug("sse client connected", "watch", watch)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected")
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			cur := s.ctl.Status()
			diff := domain.Diff(&last, &cur)
			last = cur
			if diff == nil || !matches(diff, watch) {
				continue
			}
			if err := s.send(w, diff); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) send(w http.ResponseWriter, diff *domain.SnapshotDiff) error {
	data, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("sse encode failed", "err", err)
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// matches reports whether diff touches one of the watched fields. No filter matches all.
func matches(diff *domain.SnapshotDiff, watch []string) bool {
	if len(watch) == 0 {
		return true
	}
	for _, field := range watch {
		switch field {
		case "state":
			if diff.State != nil {
				return true
			}
		case "cue":
			if diff.CueID != nil {
				return true
			}
		case "musical":
			if diff.Musical != nil {
				return true
			}
		case "tempo":
			if diff.TempoBPM != nil {
				return true
			}
		case "armed":
			if diff.Armed != nil {
				return true
			}
		case "halted":
			if diff.Halted != nil {
				return true
			}
		case "diagnostic":
			if diff.Diagnostic != nil {
				return true
			}
		}
	}
	return false
}
