// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Heap utilization metrics.

package heap

// InternalFragmentation returns the ratio of aggregate payload bytes
// to aggregate block bytes over all truly allocated blocks, a fraction
// in [0, 1]. Blocks parked in quick lists are not counted, nor are the
// prologue and epilogue sentinels. An empty or unwalkable region
// reports 0.
func (a *Allocator) InternalFragmentation() float64 {
	if a.r.Size() == 0 {
		return 0
	}

	var payload, blocks int64
	err := a.walk(func(off int64, h header) error {
		if off == 0 { // prologue
			return nil
		}

		if h.alloc() && !h.inQuick() {
			payload += int64(h.payloadSize())
			blocks += h.blockSize()
		}
		return nil
	})
	if err != nil || blocks == 0 {
		return 0
	}

	return float64(payload) / float64(blocks)
}

// PeakUtilization returns the running maximum of the aggregate payload
// of truly allocated blocks, sampled after each allocation, divided by
// the current region size; a fraction in [0, 1]. An empty region
// reports 0.
func (a *Allocator) PeakUtilization() float64 {
	sz := a.r.Size()
	if sz == 0 {
		return 0
	}

	return float64(a.maxPayload) / float64(sz)
}
