package mel

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/born-ml/piczak/backend/cpu"
)

func sineWave(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestExtractor_LogMelShape(t *testing.T) {
	e, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	cfg := e.Config()
	if cfg.SampleRate != 22050 || cfg.NumBands != 60 {
		t.Fatalf("unexpected default config: %+v", cfg)
	}

	samples := sineWave(440, cfg.SampleRate, cfg.SampleRate)
	logmel, err := e.LogMel(samples)
	if err != nil {
		t.Fatal(err)
	}

	if len(logmel) != cfg.NumBands {
		t.Fatalf("expected %d bands, got %d", cfg.NumBands, len(logmel))
	}
	wantFrames := (len(samples)-cfg.WindowSize)/cfg.HopSize + 1
	if len(logmel[0]) != wantFrames {
		t.Fatalf("expected %d frames, got %d", wantFrames, len(logmel[0]))
	}

	floor := math.Log(LogFloor)
	for b := range logmel {
		for _, v := range logmel[b] {
			if v < floor {
				t.Fatalf("band %d holds value %f below log floor %f", b, v, floor)
			}
		}
	}
}

func TestExtractor_ToneEnergyIsLocalized(t *testing.T) {
	e, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}

	samples := sineWave(440, 22050, 22050)
	logmel, err := e.LogMel(samples)
	if err != nil {
		t.Fatal(err)
	}

	bandMean := func(b int) float64 {
		var sum float64
		for _, v := range logmel[b] {
			sum += v
		}
		return sum / float64(len(logmel[b]))
	}

	peak := 0
	for b := 1; b < len(logmel); b++ {
		if bandMean(b) > bandMean(peak) {
			peak = b
		}
	}

	// 440 Hz lands in the low mel bands with the default filterbank.
	if peak < 5 || peak > 15 {
		t.Fatalf("expected tone energy near band 10, peak at band %d", peak)
	}
	if bandMean(peak) <= bandMean(50)+1 {
		t.Fatalf("peak band %f not clearly above high band %f", bandMean(peak), bandMean(50))
	}
}

func TestExtractor_TooShortClip(t *testing.T) {
	e, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.LogMel(make([]float64, 100)); err == nil {
		t.Fatal("expected error for clip shorter than one window")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{HopSize: 2048, WindowSize: 1024}); err == nil {
		t.Fatal("expected error when hop exceeds window")
	}
	if _, err := New(Config{FMin: 9000, FMax: 8000, SampleRate: 22050}); err == nil {
		t.Fatal("expected error for inverted frequency range")
	}
}

func TestSegments_FiftyPercentOverlap(t *testing.T) {
	bands, total := 60, 202
	logmel := make([][]float64, bands)
	for b := range logmel {
		logmel[b] = make([]float64, total)
		for i := range logmel[b] {
			logmel[b][i] = float64(i)
		}
	}

	segments := Segments(logmel, 101)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments from %d frames, got %d", total, len(segments))
	}
	// Second segment starts at half a segment width.
	if segments[1][0][0] != 50 {
		t.Fatalf("expected second segment to start at frame 50, got %f", segments[1][0][0])
	}

	if got := Segments(logmel, 500); len(got) != 0 {
		t.Fatalf("expected no segments for oversized width, got %d", len(got))
	}
}

func TestBatch_TensorLayout(t *testing.T) {
	backend := cpu.New()

	segment := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
	}
	batch, err := Batch([][][]float64{segment, segment}, backend)
	if err != nil {
		t.Fatal(err)
	}

	shape := batch.Shape()
	want := []int{2, 2, 3, 1}
	for i := range want {
		if shape[i] != want[i] {
			t.Fatalf("expected shape %v, got %v", want, shape)
		}
	}
	if batch.At(0, 1, 2, 0) != 6 {
		t.Fatalf("expected band-major layout, got %f at (0,1,2,0)", batch.At(0, 1, 2, 0))
	}
}

type sineStreamer struct {
	pos, total int
	freq       float64
	sampleRate int
}

func (s *sineStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.total {
		return 0, false
	}
	n := 0
	for i := range samples {
		if s.pos >= s.total {
			break
		}
		v := 0.5 * math.Sin(2*math.Pi*s.freq*float64(s.pos)/float64(s.sampleRate))
		samples[i][0] = v
		samples[i][1] = v
		s.pos++
		n++
	}
	return n, true
}

func (s *sineStreamer) Err() error { return nil }

func TestLoadWav_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	format := beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2}
	src := &sineStreamer{total: 22050, freq: 440, sampleRate: 22050}
	if err := wav.Encode(file, src, format); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	samples, sampleRate, err := LoadWav(path)
	if err != nil {
		t.Fatal(err)
	}
	if sampleRate != 22050 {
		t.Fatalf("expected sample rate 22050, got %d", sampleRate)
	}
	if len(samples) != 22050 {
		t.Fatalf("expected 22050 samples, got %d", len(samples))
	}

	// 16-bit quantization keeps values within ~1/32768 of the source.
	for i := 0; i < 100; i++ {
		want := 0.5 * math.Sin(2*math.Pi*440*float64(i)/22050)
		if math.Abs(samples[i]-want) > 1e-3 {
			t.Fatalf("sample %d: got %f, want %f", i, samples[i], want)
		}
	}
}

func TestLoadWav_MissingFile(t *testing.T) {
	if _, _, err := LoadWav("does-not-exist.wav"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
