// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// An abstraction of the page-granular working memory of an Allocator.

package heap

// A Region is a []byte-like model of the allocator's working memory.
// It is a linear sequence of bytes addressed by non negative offsets,
// as in fseek(3), which grows by exactly one page per Grow call and
// never shrinks. ReadAt and WriteAt are assumed to perform atomically.
// A Region is not safe for concurrent access; it is designed for
// consumption by a single Allocator.
type Region interface {
	// Grow extends the region by exactly one page of zero bytes, or
	// returns an error when the page source is exhausted. After a
	// successful Grow, Size reports the previous size plus PageSize.
	Grow() error

	// PageSize returns the growth granularity in bytes. It is
	// constant over the lifetime of the region.
	PageSize() int64

	// As os.File.ReadAt. `off` is an absolute offset and cannot be
	// negative.
	ReadAt(b []byte, off int64) (n int, err error)

	// As os.File.WriteAt. Writes must fall inside the current size;
	// growing is Grow's job alone.
	WriteAt(b []byte, off int64) (n int, err error)

	// Size returns the current region end, a multiple of PageSize.
	Size() int64

	// PunchHole discards the content of the byte range starting at
	// off and continuing for size bytes. The region size does not
	// change. A Region is free to implement PunchHole as a no-op; no
	// guarantees about the content of the hole, when eventually read
	// back, are made beyond "arbitrary bytes".
	PunchHole(off, size int64) error

	// As os.File.Close.
	Close() error
}
