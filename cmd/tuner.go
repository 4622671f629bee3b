package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/0xlemi/tunelab/internal/audio"
	"github.com/0xlemi/tunelab/internal/pitch"
	"github.com/0xlemi/tunelab/internal/ui"
)

// How often the level meter is refreshed
const levelInterval = 200 * time.Millisecond

func newTunerCommand(opts *options) *cobra.Command {
	var showLevel bool
	cmd := &cobra.Command{
		Use:   "tuner",
		Short: "Show the note being played with its cents deviation",
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

			tracker := pitch.NewTracker(cfg.Conditioner, cfg.Pitch.Cutoff, cfg.Pitch.Stream, a.log)
			model := ui.NewTunerModel(a.source, showLevel)

			return a.run(cmd.Context(), model, func(ctx context.Context, send func(tea.Msg)) error {
				var lastLevel time.Time
				return a.captureLoop(ctx, func(buf *audio.AudioBuffer) {
					ev := tracker.Process(buf)
					send(ui.PitchMsg{Event: ev, History: tracker.Stream.History()})

					if showLevel && time.Since(lastLevel) > levelInterval {
						rms, db := audio.Level(buf)
						send(ui.LevelMsg{RMS: rms, DB: db})
						lastLevel = time.Now()
					}
				})
			})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&showLevel, "level", false, "show the input level")
	f.Float64("cutoff", 0, "NSDF peak cutoff (0-1)")
	f.Bool("low-pass", false, "low-pass the input before detection")
	f.Int("downsample", 0, "integer decimation factor before detection")
	return cmd
}
