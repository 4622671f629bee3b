package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/0xlemi/tunelab/internal/config"
	"github.com/0xlemi/tunelab/internal/logging"
)

// options are the flags shared by every subcommand
type options struct {
	configPath string
	logFile    string
	plain      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "tunelab",
		Short:         "Real-time tuner, chord detector and practice metronome",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&opts.logFile, "log-file", "", "write logs to this file")
	pf.BoolVar(&opts.plain, "plain", false, "print events as log lines instead of the interactive screen")
	registerAudioFlags(pf)

	root.AddCommand(
		newTunerCommand(opts),
		newChordsCommand(opts),
		newMetronomeCommand(opts),
	)
	return root
}

func registerAudioFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.StringP("input", "i", "", "read audio from a WAV file instead of the microphone")
	fs.Int("frame-size", 0, "samples per analysis frame")
	fs.Int("sample-rate", 0, "microphone sample rate in Hz")
	fs.Float32("amplification", 0, "input gain factor")
	fs.Float64("concert-a", 0, "reference pitch of A4 in Hz")
	fs.Int("transpose", 0, "semitones added to every note name")
}

// loadConfig reads the config file and lays the changed flags over it
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := applyFlags(&cfg, cmd.Flags()); err != nil {
		return cfg, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg.Clamp(), nil
}

func override[T any](fs *pflag.FlagSet, name string, get func(string) (T, error), dst *T) error {
	if f := fs.Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// applyFlags copies every flag the user set into cfg. Flags a command does not define are skipped.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet) error {
	tuning := &cfg.Pitch.Stream.Tuning
	err := errors.Join(
		override(fs, "log-level", fs.GetString, &cfg.LogLevel),
		override(fs, "input", fs.GetString, &cfg.Audio.Input),
		override(fs, "frame-size", fs.GetInt, &cfg.Audio.FrameSize),
		override(fs, "sample-rate", fs.GetInt, &cfg.Audio.SampleRate),
		override(fs, "amplification", fs.GetFloat32, &cfg.Audio.Amplification),
		override(fs, "concert-a", fs.GetFloat64, &tuning.ConcertA),
		override(fs, "transpose", fs.GetInt, &tuning.Transpose),

		override(fs, "cutoff", fs.GetFloat64, &cfg.Pitch.Cutoff),
		override(fs, "low-pass", fs.GetBool, &cfg.Conditioner.LowPass),
		override(fs, "downsample", fs.GetInt, &cfg.Conditioner.Downsample),

		override(fs, "fft-size", fs.GetInt, &cfg.Chords.FFTSize),

		override(fs, "tempo", fs.GetFloat64, &cfg.Rhythm.Tempo),
		override(fs, "subdivision", fs.GetInt, &cfg.Rhythm.Subdivision),
		override(fs, "poly", fs.GetInt, &cfg.Rhythm.PolySubdivision),
		override(fs, "mute", fs.GetFloat64, &cfg.Rhythm.MuteProbability),
		override(fs, "stealth", fs.GetBool, &cfg.Rhythm.StealthEnabled),
		override(fs, "stealth-on", fs.GetInt, &cfg.Rhythm.StealthBarsOn),
		override(fs, "stealth-off", fs.GetInt, &cfg.Rhythm.StealthBarsOff),
		override(fs, "step", fs.GetFloat64, &cfg.Rhythm.ProgressionIncrement),
		override(fs, "step-every", fs.GetInt, &cfg.Rhythm.ProgressionIntervalBars),
		override(fs, "goal", fs.GetFloat64, &cfg.Rhythm.ProgressionGoal),
	)
	if err != nil {
		return err
	}

	if cfg.LogLevel != "" {
		if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
			return err
		}
	}
	return nil
}
