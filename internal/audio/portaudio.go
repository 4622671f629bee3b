package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xlemi/tunelab/internal/logging"
	"github.com/gordonklaus/portaudio"
)

// hwStream is the part of *portaudio.Stream the engine relies on
type hwStream interface {
	Start() error
	Stop() error
	Close() error
	Time() time.Duration
}

// Engine owns the shared input stream. It is reference counted: the first
// Acquire initializes PortAudio and opens the stream, the last Release closes
// it and terminates PortAudio. Capturers and schedulers share one Engine.
type Engine struct {
	mu         sync.Mutex
	refs       int
	stream     hwStream
	sampleRate int
	frameSize  int
	channels   int
	log        logging.Logger

	// Read by the audio callback without taking mu
	live          atomic.Pointer[liveStream]
	amplification atomic.Uint32 // float32 bits of the amplification factor
	frames        Latest[AudioBuffer]

	open      func(e *Engine) (hwStream, error)
	terminate func() error
}

type liveStream struct{ hwStream }

// NewEngine creates an engine for the default input device. Nothing is opened until Acquire.
func NewEngine(frameSize, sampleRate, channels int, log logging.Logger) *Engine {
	if channels < 1 {
		channels = 1
	}
	e := &Engine{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		channels:   channels,
		log:        logging.OrNoOp(log).WithFields(logging.Fields{"component": "audio"}),
		open:       openPortAudio,
		terminate:  portaudio.Terminate,
	}
	e.amplification.Store(math.Float32bits(1.0))
	return e
}

func openPortAudio(e *Engine) (hwStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(
		e.channels, // input channels
		0,          // output channels (we don't need output)
		float64(e.sampleRate),
		e.frameSize, // frames per buffer
		e.processAudio,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	return stream, nil
}

// Acquire takes a reference on the shared stream, opening it if needed
func (e *Engine) Acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs > 0 {
		e.refs++
		return nil
	}

	stream, err := e.open(e)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		e.terminate()
		return fmt.Errorf("start input stream: %w", err)
	}

	e.stream = stream
	e.live.Store(&liveStream{stream})
	e.refs = 1
	e.log.Info("input stream opened", logging.Fields{
		"sample_rate": e.sampleRate,
		"frame_size":  e.frameSize,
		"channels":    e.channels,
	})
	return nil
}

// Release drops a reference; the last one closes the stream
func (e *Engine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs == 0 {
		return ErrNotCapturing
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}

	// Stop waits for the callback to return, and the callback never takes mu
	stream := e.stream
	e.stream = nil
	e.live.Store(nil)
	err := errors.Join(stream.Stop(), stream.Close(), e.terminate())
	if err != nil {
		e.log.Error(err, "closing input stream")
		return err
	}
	e.log.Info("input stream closed")
	return nil
}

// Refs returns the number of outstanding references
func (e *Engine) Refs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refs
}

// Now returns the stream time, or zero while the stream is closed
func (e *Engine) Now() time.Duration {
	live := e.live.Load()
	if live == nil {
		return 0
	}
	return live.Time()
}

// AcquireClock opens the stream if needed and returns the engine as a Clock
func (e *Engine) AcquireClock() (Clock, error) {
	if err := e.Acquire(); err != nil {
		return nil, err
	}
	return e, nil
}

// ReleaseClock gives back a reference taken by AcquireClock
func (e *Engine) ReleaseClock() {
	e.Release()
}

// SampleRate returns the configured sample rate
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// SetAmplification sets the audio amplification factor
func (e *Engine) SetAmplification(factor float32) {
	// Ensure amplification is positive
	if factor < 0.1 {
		factor = 0.1
	}
	e.amplification.Store(math.Float32bits(factor))
}

// processAudio is the stream callback. It runs on the audio thread, so it only
// builds the frame and publishes it; readers pick up the newest one.
func (e *Engine) processAudio(in, _ []float32) {
	amp := math.Float32frombits(e.amplification.Load())

	n := len(in) / e.channels
	buf := &AudioBuffer{
		Samples:    make([]float32, n),
		SampleRate: e.sampleRate,
	}

	if e.channels > 1 {
		// Average the channels down to mono
		for i := range n {
			sum := float32(0)
			for ch := 0; ch < e.channels; ch++ {
				sum += in[i*e.channels+ch]
			}
			buf.Samples[i] = (sum / float32(e.channels)) * amp
		}
	} else {
		for i, sample := range in {
			buf.Samples[i] = sample * amp
		}
	}

	if live := e.live.Load(); live != nil {
		buf.Time = live.Time() - buf.Duration()
	}
	e.frames.Store(buf)
}

// PortAudioCapturer implements Capturer on top of a shared Engine
type PortAudioCapturer struct {
	engine      *Engine
	mu          sync.Mutex
	isCapturing bool
}

// NewPortAudioCapturer creates a new audio capturer using the engine's stream
func NewPortAudioCapturer(engine *Engine) *PortAudioCapturer {
	return &PortAudioCapturer{engine: engine}
}

// Start begins audio capture
func (c *PortAudioCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isCapturing {
		return ErrAlreadyCapturing
	}
	if err := c.engine.Acquire(); err != nil {
		return err
	}
	c.isCapturing = true
	return nil
}

// Stop ends audio capture
func (c *PortAudioCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCapturing {
		return ErrNotCapturing
	}
	c.isCapturing = false
	return c.engine.Release()
}

// GetBuffer returns the newest frame. Each frame is handed out once and is owned by the caller.
func (c *PortAudioCapturer) GetBuffer() (*AudioBuffer, error) {
	if !c.IsCapturing() {
		return nil, ErrNotCapturing
	}

	buf := c.engine.frames.Take()
	if buf == nil {
		return nil, ErrNoFrame
	}
	return buf, nil
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCapturing
}
