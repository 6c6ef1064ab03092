// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Compressed region snapshots.

package heap

import (
	"io"

	"github.com/golang/snappy"
)

// Snapshot writes a snappy compressed image of r to w. Headers and
// footers stay masked in the image, so a snapshot can only be restored
// for an allocator using the same magic.
func Snapshot(r Region, w io.Writer) error {
	sz := r.Size()
	img := make([]byte, sz)
	if sz != 0 {
		if n, err := r.ReadAt(img, 0); int64(n) != sz {
			return &ErrILSEQ{Type: ErrOther, More: err}
		}
	}

	if _, err := w.Write(snappy.Encode(nil, img)); err != nil {
		return err
	}

	return nil
}

// Restore replaces the content of the zero sized region r with the
// snapshot read from rd, growing r page by page to the image size. The
// image length must be a multiple of the region page size. Only the
// region bytes are restored: an Allocator created over r can walk the
// image, but its free list and quick list tables start empty.
func Restore(r Region, rd io.Reader) error {
	if r.Size() != 0 {
		return &ErrPERM{"Restore: region not empty"}
	}

	enc, err := io.ReadAll(rd)
	if err != nil {
		return err
	}

	img, err := snappy.Decode(nil, enc)
	if err != nil {
		return err
	}

	if int64(len(img))%r.PageSize() != 0 {
		return &ErrINVAL{"Restore: image length not page aligned", len(img)}
	}

	for r.Size() < int64(len(img)) {
		if err = r.Grow(); err != nil {
			return err
		}
	}

	if len(img) != 0 {
		if n, err := r.WriteAt(img, 0); n != len(img) {
			return &ErrILSEQ{Type: ErrOther, More: err}
		}
	}
	return nil
}
