// Package metrics exports engine activity to Prometheus through lifecycle hooks.
package metrics

import (
	"time"

	"github.com/aretw0/cueline/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors.
type Metrics struct {
	budget time.Duration

	ticks        prometheus.Counter
	overruns     prometheus.Counter
	tickDuration prometheus.Histogram
	beats        prometheus.Counter
	commands     *prometheus.CounterVec
	cueChanges   *prometheus.CounterVec
	state        *prometheus.GaugeVec
	halts        prometheus.Counter
}

// New creates the collectors and registers them with reg. sampleRate and block give the
// real-time budget a tick is measured against.
func New(reg prometheus.Registerer, sampleRate, block int) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cueline_ticks_total",
			Help: "Audio ticks processed",
		}),
		overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cueline_tick_overruns_total",
			Help: "Ticks that took longer than the audio they produced",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cueline_tick_duration_seconds",
			Help:    "Time spent computing one tick",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		beats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cueline_beats_total",
			Help: "Metronome beats emitted",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cueline_commands_total",
			Help: "Commands applied, by kind and result",
		}, []string{"kind", "result"}),
		cueChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cueline_cue_changes_total",
			Help: "Cue activations, by cue",
		}, []string{"cue"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cueline_transport_state",
			Help: "1 for the current transport state",
		}, []string{"state"}),
		halts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cueline_halts_total",
			Help: "Fatal errors that stopped playback",
		}),
	}
	if sampleRate > 0 && block > 0 {
		m.budget = time.Duration(block) * time.Second / time.Duration(sampleRate)
	}
	m.setState(domain.StateIdle)
	reg.MustRegister(m.ticks, m.overruns, m.tickDuration, m.beats, m.commands, m.cueChanges, m.state, m.halts)
	return m
}

func (m *Metrics) setState(s domain.TransportState) {
	for _, st := range []domain.TransportState{domain.StateIdle, domain.StatePlaying, domain.StateVamping, domain.StateStopped} {
		v := 0.0
		if st == s {
			v = 1
		}
		m.state.WithLabelValues(string(st)).Set(v)
	}
}

// Hooks returns lifecycle hooks feeding the collectors. They only touch atomic counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTick: func(s domain.TickStats) {
			m.ticks.Inc()
			m.beats.Add(float64(s.Beats))
			m.tickDuration.Observe(s.Elapsed.Seconds())
			if m.budget > 0 && s.Elapsed > m.budget {
				m.overruns.Inc()
			}
		},
		OnCommand: func(r domain.CommandResult) {
			result := "ok"
			if r.Err != nil {
				result = "rejected"
			}
			m.commands.WithLabelValues(string(r.Command.Kind), result).Inc()
		},
		OnCueChanged: func(ev domain.Event) {
			m.cueChanges.WithLabelValues(ev.CueID).Inc()
		},
		OnStateChanged: func(_, to domain.TransportState) {
			m.setState(to)
		},
		OnHalt: func(error) {
			m.halts.Inc()
		},
	}
}

// Chain runs several hook sets in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTick: func(s domain.TickStats) {
			for _, h := range sets {
				if h.OnTick != nil {
					h.OnTick(s)
				}
			}
		},
		OnCommand: func(r domain.CommandResult) {
			for _, h := range sets {
				if h.OnCommand != nil {
					h.OnCommand(r)
				}
			}
		},
		OnCueChanged: func(ev domain.Event) {
			for _, h := range sets {
				if h.OnCueChanged != nil {
					h.OnCueChanged(ev)
				}
			}
		},
		OnStateChanged: func(from, to domain.TransportState) {
			for _, h := range sets {
				if h.OnStateChanged != nil {
					h.OnStateChanged(from, to)
				}
			}
		},
		OnHalt: func(err error) {
			for _, h := range sets {
				if h.OnHalt != nil {
					h.OnHalt(err)
				}
			}
		},
	}
}

// RegisterGauges exposes values owned elsewhere (queue drops, missing clips) as
// collectors read at scrape time.
func RegisterGauges(reg prometheus.Registerer, fns map[string]func() float64) {
	for name, fn := range fns {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "cueline_" + name,
			Help: "Engine counter " + name,
		}, fn))
	}
}
