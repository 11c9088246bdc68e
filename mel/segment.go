package mel

import (
	"fmt"

	"github.com/born-ml/piczak/tensor"
)

// Segments slices a log mel spectrogram (bands × frames) into fixed-width
// windows with 50% overlap. A clip shorter than one segment yields an
// empty slice.
func Segments(logmel [][]float64, frames int) [][][]float64 {
	if len(logmel) == 0 || frames < 1 {
		return nil
	}
	total := len(logmel[0])
	step := frames / 2
	if step < 1 {
		step = 1
	}

	var segments [][][]float64
	for start := 0; start+frames <= total; start += step {
		segment := make([][]float64, len(logmel))
		for b, band := range logmel {
			segment[b] = band[start : start+frames]
		}
		segments = append(segments, segment)
	}
	return segments
}

// Batch assembles segments into an (N, bands, frames, 1) float32 tensor,
// the classifier's inbound layout.
func Batch[B tensor.Backend](segments [][][]float64, backend B) (*tensor.Tensor[float32, B], error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments to batch")
	}
	bands := len(segments[0])
	frames := len(segments[0][0])

	data := make([]float32, 0, len(segments)*bands*frames)
	for n, segment := range segments {
		if len(segment) != bands || len(segment[0]) != frames {
			return nil, fmt.Errorf("segment %d has shape (%d, %d), expected (%d, %d)",
				n, len(segment), len(segment[0]), bands, frames)
		}
		for _, band := range segment {
			for _, v := range band {
				data = append(data, float32(v))
			}
		}
	}

	return tensor.FromSlice(data, tensor.Shape{len(segments), bands, frames, 1}, backend)
}
