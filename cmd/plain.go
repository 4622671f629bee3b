package main

import (
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/0xlemi/tunelab/internal/logging"
	"github.com/0xlemi/tunelab/internal/ui"
)

// plainSink turns screen messages into log lines, reporting changes only
type plainSink struct {
	log   logging.Logger
	note  string
	chord string
}

func newPlainSink(log logging.Logger) *plainSink {
	return &plainSink{log: log}
}

func (s *plainSink) send(msg tea.Msg) {
	switch m := msg.(type) {
	case ui.PitchMsg:
		name := ""
		if m.Event.Locked {
			name = m.Event.Note.String()
		}
		if name == s.note {
			return
		}
		s.note = name
		if name == "" {
			s.log.Info("note released")
			return
		}
		s.log.Info("note", logging.Fields{
			"note":    name,
			"hz":      math.Round(m.Event.Frequency*100) / 100,
			"cents":   m.Event.Note.Cents,
			"clarity": math.Round(m.Event.Clarity*100) / 100,
		})

	case ui.ChordMsg:
		notes := strings.Join(m, " ")
		if notes == s.chord {
			return
		}
		s.chord = notes
		s.log.Info("chord", logging.Fields{"notes": notes})

	case ui.LevelMsg:
		s.log.Debug("level", logging.Fields{"rms": m.RMS, "db": math.Round(m.DB*10) / 10})

	case ui.BeatMsg:
		s.log.Info("beat", logging.Fields{
			"pulse": m.Pulse,
			"bar":   m.Bar,
			"level": m.Level.String(),
			"muted": m.Muted,
			"poly":  m.IsPolyLane,
		})

	case ui.TempoMsg:
		s.log.Info("tempo", logging.Fields{"bpm": float64(m)})

	case ui.TimingMsg:
		s.log.Info("hit", logging.Fields{
			"offset_ms": m.Offset.Milliseconds(),
			"rating":    m.Rating.String(),
			"mean_ms":   m.MeanError.Milliseconds(),
		})

	case ui.ErrMsg:
		s.log.Error(m.Err, "audio input failed")
	}
}
