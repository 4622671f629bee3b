// Package dsp holds the signal conditioning applied to raw frames before analysis.
package dsp

// Alpha is the one-pole low-pass coefficient, roughly a 1 kHz cutoff at 44.1-48 kHz
const Alpha = 0.15

// ConditionerConfig selects the optional stages
type ConditionerConfig struct {
	LowPass    bool `yaml:"low_pass"`
	Downsample int  `yaml:"downsample"` // Integer decimation factor, 1 disables
}

// Conditioner applies an optional one-pole low-pass and integer decimation to
// frames. Filter state carries over between frames while the low-pass is on,
// so consecutive frames are smoothed as one continuous signal.
type Conditioner struct {
	lowPass bool
	factor  int
	y       float64
	out     []float64
}

// NewConditioner creates a conditioner; a factor below 1 is treated as 1
func NewConditioner(cfg ConditionerConfig) *Conditioner {
	c := &Conditioner{}
	c.SetLowPass(cfg.LowPass)
	c.SetDownsample(cfg.Downsample)
	return c
}

// SetLowPass enables or disables the low-pass. Disabling resets the filter state.
func (c *Conditioner) SetLowPass(enabled bool) {
	c.lowPass = enabled
	if !enabled {
		c.y = 0
	}
}

// SetDownsample sets the decimation factor
func (c *Conditioner) SetDownsample(factor int) {
	c.factor = max(factor, 1)
}

// Downsample returns the active decimation factor
func (c *Conditioner) Downsample() int { return c.factor }

// Filter conditions frame and returns the result with its effective sample rate.
// frame is never modified. The returned slice is reused by the next call; with
// both stages off it is frame itself.
func (c *Conditioner) Filter(frame []float64, sampleRate float64) ([]float64, float64) {
	if !c.lowPass && c.factor == 1 {
		return frame, sampleRate
	}

	n := (len(frame) + c.factor - 1) / c.factor
	if cap(c.out) < n {
		c.out = make([]float64, n)
	}
	out := c.out[:n]

	y := c.y
	j := 0
	for i, x := range frame {
		if c.lowPass {
			y += Alpha * (x - y)
			x = y
		}
		if i%c.factor == 0 {
			out[j] = x
			j++
		}
	}
	if c.lowPass {
		c.y = y
	}

	return out, sampleRate / float64(c.factor)
}
