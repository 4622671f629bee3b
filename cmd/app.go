package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/0xlemi/tunelab/internal/audio"
	"github.com/0xlemi/tunelab/internal/config"
	"github.com/0xlemi/tunelab/internal/logging"
	"github.com/0xlemi/tunelab/internal/ui"
)

// How often the microphone slot is polled for a new frame
const pollInterval = 10 * time.Millisecond

// app is the wiring shared by the subcommands: config, logger and audio input
type app struct {
	cfg      config.Config
	log      logging.Logger
	closeLog func() error
	plain    bool

	engine   *audio.Engine // nil when reading a file
	wav      *audio.WAVCapturer
	capturer audio.Capturer
	source   string
}

func newApp(cfg config.Config, opts *options) (*app, error) {
	log, closeLog, err := newLogger(cfg.LogLevel, opts.logFile, opts.plain)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, closeLog: closeLog, plain: opts.plain}
	if path := cfg.Audio.Input; path != "" {
		a.wav = audio.NewWAVCapturer(path, cfg.Audio.FrameSize)
		a.capturer = a.wav
		a.source = filepath.Base(path)
	} else {
		a.engine = audio.NewEngine(cfg.Audio.FrameSize, cfg.Audio.SampleRate, cfg.Audio.Channels, log)
		a.engine.SetAmplification(cfg.Audio.Amplification)
		a.capturer = audio.NewPortAudioCapturer(a.engine)
		a.source = "microphone"
	}

	a.log.Debug("configured input", logging.Fields{"source": a.source, "frame_size": cfg.Audio.FrameSize})
	return a, nil
}

// newLogger picks the log destination. The interactive screen owns the terminal,
// so without a log file it only logs in plain mode.
func newLogger(level, file string, plain bool) (logging.Logger, func() error, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var l *logging.DefaultLogger
	closer := func() error { return nil }
	switch {
	case file != "":
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l = logging.NewWriterLogger(f, f, false)
		closer = f.Close
	case plain:
		l = logging.NewDefaultLogger()
	default:
		return logging.NoOpLogger{}, closer, nil
	}

	l.SetLevel(lvl)
	return l, closer, nil
}

func (a *app) Close() error {
	return a.closeLog()
}

// captureLoop feeds every new frame to handle until ctx is done or the file ends.
// Files are paced at their real-time rate.
func (a *app) captureLoop(ctx context.Context, handle func(*audio.AudioBuffer)) error {
	if err := a.capturer.Start(); err != nil {
		return fmt.Errorf("failed to start audio capture: %w", err)
	}
	defer func() {
		if err := a.capturer.Stop(); err != nil {
			a.log.Error(err, "failed to stop audio capture")
		}
	}()

	interval := pollInterval
	if a.wav != nil && a.wav.SampleRate() > 0 {
		interval = time.Duration(a.cfg.Audio.FrameSize) * time.Second / time.Duration(a.wav.SampleRate())
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		buf, err := a.capturer.GetBuffer()
		switch {
		case errors.Is(err, audio.ErrNoFrame):
			continue
		case errors.Is(err, io.EOF):
			a.log.Info("end of input", logging.Fields{"source": a.source})
			return nil
		case err != nil:
			return err
		}
		handle(buf)
	}
}

// run drives the capture loop alongside the interactive program, or alone in
// plain mode. send delivers screen messages either way.
func (a *app) run(ctx context.Context, model tea.Model, loop func(ctx context.Context, send func(tea.Msg)) error) error {
	if a.plain {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		return loop(ctx, newPlainSink(a.log).send)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, tea.WithAltScreen())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := loop(gctx, p.Send)
		if err != nil {
			p.Send(ui.ErrMsg{Err: err})
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})
	return g.Wait()
}
