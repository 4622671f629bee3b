package main

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/0xlemi/tunelab/internal/audio"
	"github.com/0xlemi/tunelab/internal/dsp"
	"github.com/0xlemi/tunelab/internal/rhythm"
	"github.com/0xlemi/tunelab/internal/ui"
)

// Beats kept for judging played onsets
const timingWindow = 16

func newMetronomeCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metronome",
		Short: "Lookahead metronome that rates the timing of what you play",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			// A file has no hardware clock: its frames set the time and drive the ticks
			var (
				clock  audio.Clock
				source audio.ClockSource
				manual *audio.ManualClock
			)
			if a.engine != nil {
				clock, source = a.engine, a.engine
			} else {
				manual = audio.NewManualClock(0)
				clock, source = manual, manual
				cfg.Rhythm.LookaheadInterval = 0
			}

			sched := rhythm.NewScheduler(cfg.Rhythm, source, rhythm.WithLogger(a.log))
			defer sched.Dispose()

			var mu sync.Mutex
			timing := rhythm.NewTimingAnalyzer(timingWindow)
			onsets := dsp.NewOnsetDetector(cfg.Onset)
			model := ui.NewMetronomeModel(sched)

			return a.run(cmd.Context(), model, func(ctx context.Context, send func(tea.Msg)) error {
				unsubscribeBeat := sched.OnBeat(func(b rhythm.Beat) {
					mu.Lock()
					timing.Record(b)
					mu.Unlock()

					// Beats are scheduled ahead; show each when it sounds
					time.AfterFunc(max(b.Time-clock.Now(), 0), func() {
						send(ui.BeatMsg(b))
					})
				})
				defer unsubscribeBeat()
				// Tempo changes also come from the screen's own key handler, which must not block on itself
				unsubscribeTempo := sched.OnTempoChange(func(bpm float64) {
					go send(ui.TempoMsg(bpm))
				})
				defer unsubscribeTempo()

				if err := sched.Start(); err != nil {
					return err
				}
				defer sched.Stop()

				var samples []float64
				return a.captureLoop(ctx, func(buf *audio.AudioBuffer) {
					if manual != nil {
						manual.Set(buf.Time + buf.Duration())
						sched.Tick()
					}

					samples = buf.Float64(samples)
					for _, at := range onsets.Process(samples, float64(buf.SampleRate), buf.Time) {
						mu.Lock()
						j, ok := timing.Evaluate(at)
						mu.Unlock()
						if ok {
							send(ui.TimingMsg(j))
						}
					}
				})
			})
		},
	}

	f := cmd.Flags()
	f.Float64P("tempo", "t", 0, "tempo in BPM (40-300)")
	f.Int("subdivision", 0, "pulses per beat (1-4)")
	f.Int("poly", 0, "polyrhythm pulses per bar, 0 disables")
	f.Float64("mute", 0, "probability of silencing an off-beat pulse (gap click)")
	f.Bool("stealth", false, "silence whole bars in an on/off cycle")
	f.Int("stealth-on", 0, "audible bars per stealth cycle")
	f.Int("stealth-off", 0, "silent bars per stealth cycle")
	f.Float64("step", 0, "BPM added by auto progression")
	f.Int("step-every", 0, "bars between progression steps, 0 disables")
	f.Float64("goal", 0, "tempo at which progression stops")
	return cmd
}
