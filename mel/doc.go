// Package mel converts audio into log-scaled mel spectrogram segments.
//
// The pipeline: decode WAV or FLAC to mono samples, STFT with a Hann
// window, triangular mel filterbank on the HTK scale, log scaling with a
// floor, and segmentation into fixed-width windows with 50% overlap.
// Segment batches come out as (N, bands, frames, 1) float32 tensors, the
// inbound layout of the classifier.
package mel
