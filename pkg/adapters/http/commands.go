package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

const (
	statusApplied  = "applied"
	statusQueued   = "queued"
	statusRejected = "rejected"
)

type commandResponse struct {
	Seq    uint64 `json:"seq,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

var (
	domainGo      = domain.GoCue()
	domainNext    = domain.Command{Kind: domain.CommandNext}
	domainPrev    = domain.Command{Kind: domain.CommandPrev}
	domainRelease = domain.VampRelease()
	domainHold    = domain.HoldAtBar()
)

// StatusCode maps an engine or queue error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrUnknownCue):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPastMutation), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrQueueFull):
		return http.StatusTooManyRequests
	case domain.IsFatal(err):
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

// submit queues cmd and waits for the engine to apply it.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, cmd domain.Command) {
	seq, err := s.ctl.Submit(cmd)
	if err != nil {
		// The new command is queued; an older one from this source was dropped.
		s.logger.Warn("command queue full", "kind", cmd.Kind, "err", err)
		writeJSON(w, s.logger, StatusCode(err), commandResponse{Seq: seq, Status: statusQueued, Error: err.Error()})
		return
	}
	if s.await <= 0 {
		writeJSON(w, s.logger, http.StatusAccepted, commandResponse{Seq: seq, Status: statusQueued})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.await)
	defer cancel()
	res, err := s.ctl.Await(ctx, seq)
	if err != nil {
		writeJSON(w, s.logger, http.StatusAccepted, commandResponse{Seq: seq, Status: statusQueued})
		return
	}
	if res.Err != nil {
		writeJSON(w, s.logger, StatusCode(res.Err), commandResponse{Seq: seq, Status: statusRejected, Error: res.Err.Error()})
		return
	}
	writeJSON(w, s.logger, http.StatusOK, commandResponse{Seq: seq, Status: statusApplied})
}

func (s *Server) simple(cmd domain.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.submit(w, r, cmd)
	}
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, s.logger, http.StatusBadRequest, commandResponse{Status: statusRejected, Error: err.Error()})
}

// SubmitCommand handles POST /commands. Arguments are decoded with mapstructure, the
// same way show files are.
func (s *Server) SubmitCommand(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.badRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	var cmd domain.Command
	if err := compiler.Decode(raw, &cmd); err != nil {
		s.badRequest(w, fmt.Errorf("invalid command: %w", err))
		return
	}
	if !cmd.Kind.Valid() || cmd.Kind == domain.CommandReload {
		s.badRequest(w, fmt.Errorf("unsupported command %q", cmd.Kind))
		return
	}
	if cmd.Kind == domain.CommandJumpTo && !s.hasCue(cmd.CueID) {
		writeJSON(w, s.logger, http.StatusNotFound, commandResponse{Status: statusRejected, Error: (&domain.UnknownCueError{CueID: cmd.CueID}).Error()})
		return
	}
	s.submit(w, r, cmd)
}

// Transport handles POST /transport/{action}.
func (s *Server) Transport(w http.ResponseWriter, r *http.Request) {
	var action string
	err := runtime.BindStyledParameterWithOptions("simple", "action", chi.URLParam(r, "action"), &action,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.badRequest(w, err)
		return
	}
	switch action {
	case "play":
		s.submit(w, r, domain.Play())
	case "stop":
		s.submit(w, r, domain.Stop())
	case "reset":
		s.submit(w, r, domain.Reset())
	default:
		s.badRequest(w, fmt.Errorf("unknown transport action %q", action))
	}
}

// JumpToCue handles POST /cues/{cueID}/jump. Unknown cues are refused before queueing.
func (s *Server) JumpToCue(w http.ResponseWriter, r *http.Request) {
	var cueID string
	err := runtime.BindStyledParameterWithOptions("simple", "cueID", chi.URLParam(r, "cueID"), &cueID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if !s.hasCue(cueID) {
		err := &domain.UnknownCueError{CueID: cueID}
		writeJSON(w, s.logger, StatusCode(err), commandResponse{Status: statusRejected, Error: err.Error()})
		return
	}
	s.submit(w, r, domain.JumpTo(cueID))
}

func (s *Server) hasCue(id string) bool {
	show := s.ctl.Show()
	if show == nil {
		return false
	}
	for _, c := range show.Cues {
		if c.ID == id {
			return true
		}
	}
	return false
}

// NudgeTempo handles POST /tempo/nudge.
func (s *Server) NudgeTempo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeltaBPM float64 `json:"delta_bpm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	s.submit(w, r, domain.TempoNudge(body.DeltaBPM))
}

// SetChannelGain handles POST /channels/{channel}/gain.
func (s *Server) SetChannelGain(w http.ResponseWriter, r *http.Request) {
	channel, ok := s.channelParam(w, r)
	if !ok {
		return
	}
	var body struct {
		GainDB float64 `json:"gain_db"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	s.submit(w, r, domain.ChannelGain(channel, body.GainDB))
}

// SetChannelMute handles POST /channels/{channel}/mute.
func (s *Server) SetChannelMute(w http.ResponseWriter, r *http.Request) {
	channel, ok := s.channelParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Mute bool `json:"mute"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	s.submit(w, r, domain.ChannelMute(channel, body.Mute))
}

func (s *Server) channelParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	var channel int
	err := runtime.BindStyledParameterWithOptions("simple", "channel", chi.URLParam(r, "channel"), &channel,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.badRequest(w, err)
		return 0, false
	}
	return channel, true
}

// SeekBeat handles POST /position/seek. keep_phase selects a seek that stays on the
// beat grid; otherwise the playhead lands on the beat at once.
func (s *Server) SeekBeat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Beat      float64 `json:"beat"`
		KeepPhase bool    `json:"keep_phase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.KeepPhase {
		s.submit(w, r, domain.SeekBeat(body.Beat))
		return
	}
	s.submit(w, r, domain.JumpBeat(body.Beat))
}

// LoadCue handles POST /cues/load.
func (s *Server) LoadCue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	s.submit(w, r, domain.LoadCue(body.Index))
}

// SetPlayrate handles POST /tempo/playrate.
func (s *Server) SetPlayrate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Percent int `json:"percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	s.submit(w, r, domain.Playrate(body.Percent))
}
