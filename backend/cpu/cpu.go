// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure-Go CPU compute backend.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
package cpu

import (
	"github.com/born-ml/piczak/internal/backend/cpu"
)

// Backend is the CPU backend implementation.
type Backend = cpu.CPUBackend

// New creates a CPU backend with default parallelism.
func New() *Backend {
	return cpu.New()
}
