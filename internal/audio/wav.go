package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/youpy/go-wav"
)

// WAVCapturer replays a WAV file as a sequence of mono frames. It stands in for
// the microphone when practicing against a recording or reproducing a session.
type WAVCapturer struct {
	path      string
	frameSize int

	mu          sync.Mutex
	file        *os.File
	reader      *wav.Reader
	channels    int
	sampleRate  int
	position    int64 // samples delivered so far
	isCapturing bool
}

// NewWAVCapturer creates a capturer for the file at path
func NewWAVCapturer(path string, frameSize int) *WAVCapturer {
	return &WAVCapturer{path: path, frameSize: frameSize}
}

// Start opens the file and reads its header
func (c *WAVCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isCapturing {
		return ErrAlreadyCapturing
	}

	file, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("open wav: %w", err)
	}
	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		file.Close()
		return fmt.Errorf("read wav header: %w", err)
	}
	if format.NumChannels == 0 || format.SampleRate == 0 {
		file.Close()
		return fmt.Errorf("read wav header: %d channels at %d Hz", format.NumChannels, format.SampleRate)
	}

	c.file = file
	c.reader = reader
	c.channels = int(format.NumChannels)
	c.sampleRate = int(format.SampleRate)
	c.position = 0
	c.isCapturing = true
	return nil
}

// Stop closes the file
func (c *WAVCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCapturing {
		return ErrNotCapturing
	}
	c.isCapturing = false
	c.reader = nil
	return c.file.Close()
}

// GetBuffer returns the next frame, or io.EOF once the file is exhausted.
// A short final frame is returned as is.
func (c *WAVCapturer) GetBuffer() (*AudioBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCapturing {
		return nil, ErrNotCapturing
	}

	buf := &AudioBuffer{
		Samples:    make([]float32, 0, c.frameSize),
		SampleRate: c.sampleRate,
		Time:       time.Duration(c.position) * time.Second / time.Duration(c.sampleRate),
	}

	for len(buf.Samples) < c.frameSize {
		samples, err := c.reader.ReadSamples(uint32(c.frameSize - len(buf.Samples)))
		for _, s := range samples {
			sum := 0.0
			for ch := 0; ch < c.channels; ch++ {
				sum += c.reader.FloatValue(s, uint(ch))
			}
			buf.Samples = append(buf.Samples, float32(sum/float64(c.channels)))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read wav samples: %w", err)
		}
		if len(samples) == 0 {
			break
		}
	}

	if len(buf.Samples) == 0 {
		return nil, io.EOF
	}
	c.position += int64(len(buf.Samples))
	return buf, nil
}

// IsCapturing returns true while the file is open
func (c *WAVCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCapturing
}

// SampleRate returns the file's sample rate, valid after Start
func (c *WAVCapturer) SampleRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleRate
}
