package mel

import (
	"fmt"
	"io"
	"os"

	"github.com/faiface/beep/wav"
	"github.com/mewkiz/flac"
)

// LoadWav decodes a WAV file into mono samples in [-1, 1] and returns the
// sample rate. Stereo input is downmixed by averaging the channels.
func LoadWav(path string) ([]float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open wav file: %w", err)
	}

	stream, format, err := wav.Decode(file)
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("failed to decode wav file: %w", err)
	}
	defer stream.Close()

	var out []float64
	buf := make([][2]float64, 512)
	for {
		n, ok := stream.Stream(buf)
		for i := 0; i < n; i++ {
			out = append(out, (buf[i][0]+buf[i][1])/2)
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read wav samples: %w", err)
	}

	return out, int(format.SampleRate), nil
}

// LoadFlac decodes a FLAC file into mono samples in [-1, 1] and returns
// the sample rate. Multi-channel input is downmixed by averaging.
func LoadFlac(path string) ([]float64, int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse flac file: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	scale := float64(int64(1) << (stream.Info.BitsPerSample - 1))

	var out []float64
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse flac frame: %w", err)
		}

		n := len(f.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			var sum float64
			for ch := 0; ch < channels; ch++ {
				sum += float64(f.Subframes[ch].Samples[i])
			}
			out = append(out, sum/float64(channels)/scale)
		}
	}

	return out, int(stream.Info.SampleRate), nil
}
