// Package piczak implements a convolutional classifier for environmental
// sound, operating on log mel spectrogram segments.
//
// The network is two convolution/pooling stages followed by two fully
// connected layers and a linear output head. Input is (N, bands, frames, 1)
// float32; output is raw per-class logits. The architecture follows
// Piczak, "Environmental Sound Classification with Convolutional Neural
// Networks" (MLSP 2015).
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model, err := piczak.New(piczak.DefaultConfig[*autodiff.Backend[*cpu.Backend]](), backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logits := model.Forward(segments, false)
package piczak
