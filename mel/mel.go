package mel

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/window"
	"github.com/r9y9/gossp/stft"
)

// HTK mel scale constants.
const (
	melBreakFrequencyHertz = 700.0
	melHighFrequencyQ      = 1127.0
)

// LogFloor clamps spectrogram magnitudes before the log so silence maps to
// a finite value.
const LogFloor = 1e-5

// Config holds the analysis parameters for mel extraction.
type Config struct {
	SampleRate int     // input sample rate in Hz (default: 22050)
	NumBands   int     // mel filterbank size (default: 60)
	WindowSize int     // STFT window length in samples (default: 1024)
	HopSize    int     // STFT hop in samples (default: 512)
	FMin       float64 // lowest filterbank frequency in Hz (default: 0)
	FMax       float64 // highest filterbank frequency in Hz (default: SampleRate/2)
}

// DefaultConfig returns the standard analysis framing for 5-second
// environmental sound clips: 60 bands over 1024-sample windows with 50%
// hop at 22050 Hz.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		NumBands:   60,
		WindowSize: 1024,
		HopSize:    512,
	}
}

// Extractor converts mono samples into log mel spectrograms. Construct
// with New; the filterbank is built once and reused across clips.
type Extractor struct {
	cfg     Config
	stft    *stft.STFT
	filters [][]float64 // [band][fftBin] triangular weights
}

// New creates an extractor for the given config. Zero-value fields fall
// back to DefaultConfig values.
func New(cfg Config) (*Extractor, error) {
	def := DefaultConfig()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.NumBands == 0 {
		cfg.NumBands = def.NumBands
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.HopSize == 0 {
		cfg.HopSize = def.HopSize
	}
	if cfg.FMax == 0 {
		cfg.FMax = float64(cfg.SampleRate) / 2
	}

	if cfg.SampleRate < 0 || cfg.NumBands < 1 || cfg.WindowSize < 2 || cfg.HopSize < 1 {
		return nil, fmt.Errorf("invalid mel config: %+v", cfg)
	}
	if cfg.HopSize > cfg.WindowSize {
		return nil, fmt.Errorf("hop size %d exceeds window size %d", cfg.HopSize, cfg.WindowSize)
	}
	if cfg.FMin < 0 || cfg.FMax <= cfg.FMin || cfg.FMax > float64(cfg.SampleRate)/2 {
		return nil, fmt.Errorf("invalid frequency range [%g, %g] for sample rate %d",
			cfg.FMin, cfg.FMax, cfg.SampleRate)
	}

	s := stft.New(cfg.HopSize, cfg.WindowSize)
	s.Window = window.Hann(cfg.WindowSize)

	return &Extractor{
		cfg:     cfg,
		stft:    s,
		filters: melFilterbank(cfg),
	}, nil
}

// Config returns the resolved analysis parameters.
func (e *Extractor) Config() Config {
	return e.cfg
}

// LogMel computes the log mel spectrogram of mono samples, shaped
// [NumBands][frames].
func (e *Extractor) LogMel(samples []float64) ([][]float64, error) {
	if len(samples) < e.cfg.WindowSize {
		return nil, fmt.Errorf("clip has %d samples, need at least one window of %d",
			len(samples), e.cfg.WindowSize)
	}

	spectrum := e.stft.STFT(samples)
	numFrames := len(spectrum)
	numBins := e.cfg.WindowSize/2 + 1

	out := make([][]float64, e.cfg.NumBands)
	for b := range out {
		out[b] = make([]float64, numFrames)
	}

	mag := make([]float64, numBins)
	for t, frame := range spectrum {
		for k := 0; k < numBins; k++ {
			mag[k] = math.Hypot(real(frame[k]), imag(frame[k]))
		}
		for b, filter := range e.filters {
			var total float64
			for k, w := range filter {
				if w != 0 {
					total += w * mag[k]
				}
			}
			if total < LogFloor {
				total = LogFloor
			}
			out[b][t] = math.Log(total)
		}
	}

	return out, nil
}

func melToHz(mel float64) float64 {
	return melBreakFrequencyHertz * (math.Exp(mel/melHighFrequencyQ) - 1.0)
}

func hzToMel(hz float64) float64 {
	return melHighFrequencyQ * math.Log(1.0+hz/melBreakFrequencyHertz)
}

// melFilterbank builds triangular filters with edges equally spaced on the
// mel scale between FMin and FMax.
func melFilterbank(cfg Config) [][]float64 {
	numBins := cfg.WindowSize/2 + 1
	binWidth := float64(cfg.SampleRate) / float64(cfg.WindowSize)

	melLo := hzToMel(cfg.FMin)
	melHi := hzToMel(cfg.FMax)
	edges := make([]float64, cfg.NumBands+2)
	for i := range edges {
		mel := melLo + (melHi-melLo)*float64(i)/float64(cfg.NumBands+1)
		edges[i] = melToHz(mel)
	}

	filters := make([][]float64, cfg.NumBands)
	for b := 0; b < cfg.NumBands; b++ {
		filter := make([]float64, numBins)
		lo, center, hi := edges[b], edges[b+1], edges[b+2]
		for k := 0; k < numBins; k++ {
			freq := float64(k) * binWidth
			switch {
			case freq <= lo || freq >= hi:
				// outside the triangle
			case freq <= center:
				filter[k] = (freq - lo) / (center - lo)
			default:
				filter[k] = (hi - freq) / (hi - center)
			}
		}
		filters[b] = filter
	}
	return filters
}
