package audio

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youpy/go-wav"
)

type fakeStream struct {
	mu      sync.Mutex
	started bool
	closed  bool
	now     time.Duration
}

func (s *fakeStream) Start() error { s.mu.Lock(); s.started = true; s.mu.Unlock(); return nil }
func (s *fakeStream) Stop() error  { s.mu.Lock(); s.started = false; s.mu.Unlock(); return nil }
func (s *fakeStream) Close() error { s.mu.Lock(); s.closed = true; s.mu.Unlock(); return nil }
func (s *fakeStream) Time() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func newFakeEngine(t *testing.T) (*Engine, *int, *fakeStream) {
	t.Helper()
	e := NewEngine(4, 8, 1, nil)
	opens := 0
	stream := &fakeStream{now: 2 * time.Second}
	e.open = func(*Engine) (hwStream, error) {
		opens++
		return stream, nil
	}
	e.terminate = func() error { return nil }
	return e, &opens, stream
}

func TestEngineReferenceCounting(t *testing.T) {
	e, opens, stream := newFakeEngine(t)

	require.NoError(t, e.Acquire())
	clock, err := e.AcquireClock()
	require.NoError(t, err)
	assert.Equal(t, 1, *opens)
	assert.Equal(t, 2, e.Refs())
	assert.Equal(t, 2*time.Second, clock.Now())

	require.NoError(t, e.Release())
	assert.False(t, stream.closed)

	e.ReleaseClock()
	assert.True(t, stream.closed)
	assert.Equal(t, time.Duration(0), e.Now())
	assert.ErrorIs(t, e.Release(), ErrNotCapturing)
}

func TestEngineAcquireFailure(t *testing.T) {
	e := NewEngine(4, 8, 1, nil)
	boom := errors.New("no device")
	e.open = func(*Engine) (hwStream, error) { return nil, boom }

	_, err := e.AcquireClock()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, e.Refs())
}

func TestPortAudioCapturerLatestFrameWins(t *testing.T) {
	e, _, _ := newFakeEngine(t)
	e.SetAmplification(2)
	c := NewPortAudioCapturer(e)

	_, err := c.GetBuffer()
	assert.ErrorIs(t, err, ErrNotCapturing)

	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.Start(), ErrAlreadyCapturing)

	_, err = c.GetBuffer()
	assert.ErrorIs(t, err, ErrNoFrame)

	e.processAudio([]float32{0.1, 0.1, 0.1, 0.1}, nil)
	e.processAudio([]float32{0.2, 0.2, 0.2, 0.2}, nil)

	buf, err := c.GetBuffer()
	require.NoError(t, err)
	assert.InDelta(t, 0.4, buf.Samples[0], 1e-6)
	assert.Equal(t, 2*time.Second-500*time.Millisecond, buf.Time)

	_, err = c.GetBuffer()
	assert.ErrorIs(t, err, ErrNoFrame)

	require.NoError(t, c.Stop())
	assert.Equal(t, 0, e.Refs())
}

func TestEngineDownmixesChannels(t *testing.T) {
	e, _, _ := newFakeEngine(t)
	e.channels = 2
	e.processAudio([]float32{1, 0, 0.5, 0.5}, nil)

	buf := e.frames.Take()
	require.NotNil(t, buf)
	assert.Equal(t, []float32{0.5, 0.5}, buf.Samples)
}

func TestLatestHandsOutNewestOnce(t *testing.T) {
	var slot Latest[int]
	assert.Nil(t, slot.Take())

	first, second := 1, 2
	slot.Store(&first)
	slot.Store(&second)

	got := slot.Take()
	require.NotNil(t, got)
	assert.Equal(t, 2, *got)
	assert.Nil(t, slot.Take())
}

func TestLevel(t *testing.T) {
	rms, db := Level(&AudioBuffer{Samples: []float32{0.5, -0.5, 0.5, -0.5}})
	assert.InDelta(t, 0.5, rms, 1e-9)
	assert.InDelta(t, 20*math.Log10(0.5), db, 1e-9)

	rms, db = Level(&AudioBuffer{Samples: make([]float32, 8)})
	assert.Zero(t, rms)
	assert.Equal(t, -100.0, db)
}

func TestAudioBufferFloat64ReusesDestination(t *testing.T) {
	buf := &AudioBuffer{Samples: []float32{0.25, -0.5}, SampleRate: 4}
	dst := make([]float64, 0, 8)
	out := buf.Float64(dst)

	assert.Equal(t, []float64{0.25, -0.5}, out)
	assert.Equal(t, 8, cap(out))
	assert.Equal(t, 500*time.Millisecond, buf.Duration())
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(time.Second)
	assert.Equal(t, 1500*time.Millisecond, c.Advance(500*time.Millisecond))
	c.Set(0)
	assert.Equal(t, time.Duration(0), c.Now())

	clock, err := c.AcquireClock()
	require.NoError(t, err)
	assert.Same(t, c, clock)
}

func writeTestWAV(t *testing.T, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := wav.NewWriter(f, uint32(len(samples)), 1, 8000, 16)
	out := make([]wav.Sample, len(samples))
	for i, v := range samples {
		out[i] = wav.Sample{Values: [2]int{v, v}}
	}
	require.NoError(t, w.WriteSamples(out))
	require.NoError(t, f.Close())
	return path
}

func TestWAVCapturerFrames(t *testing.T) {
	samples := make([]int, 10)
	for i := range samples {
		samples[i] = 16384
	}
	c := NewWAVCapturer(writeTestWAV(t, samples), 4)
	require.NoError(t, c.Start())
	defer c.Stop()

	assert.Equal(t, 8000, c.SampleRate())

	var frames []*AudioBuffer
	for {
		buf, err := c.GetBuffer()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		frames = append(frames, buf)
	}

	require.Len(t, frames, 3)
	assert.Len(t, frames[0].Samples, 4)
	assert.Len(t, frames[2].Samples, 2)
	assert.InDelta(t, 0.5, frames[0].Samples[0], 1e-3)
	assert.Equal(t, time.Millisecond, frames[2].Time)
}
