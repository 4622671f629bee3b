package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/0xlemi/tunelab/internal/audio"
	"github.com/0xlemi/tunelab/internal/pitch"
	"github.com/0xlemi/tunelab/internal/ui"
)

func newChordsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chords",
		Short: "Show every note currently sounding",
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

			tracker := pitch.NewChordTracker(cfg.Chords.FFTSize, cfg.Chords.Smoothing, cfg.Chords.Poly, cfg.Pitch.Stream.Tuning)
			model := ui.NewChordsModel(a.source)

			return a.run(cmd.Context(), model, func(ctx context.Context, send func(tea.Msg)) error {
				return a.captureLoop(ctx, func(buf *audio.AudioBuffer) {
					send(ui.ChordMsg(tracker.Process(buf)))
				})
			})
		},
	}

	cmd.Flags().Int("fft-size", 0, "FFT size of the chord spectrum")
	return cmd
}
