// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A basic os.File backed Region.

package heap

import (
	"os"

	"github.com/cznic/fileutil"
	"github.com/pkg/errors"
)

var _ Region = &FileRegion{} // Ensure FileRegion is a Region.

// FileRegion is an os.File backed Region intended for heaps which
// should not live in process memory, for example working sets larger
// than RAM comfort or heap images inspected post mortem. It does not
// protect the structural integrity of its file in any way; a crash
// mid-update can leave a torn image behind.
type FileRegion struct {
	file     *os.File
	pageSize int64
	size     int64
	maxPages int
	zero     []byte
}

// NewFileRegion returns a new FileRegion over f, growing by pageSize
// bytes per page up to maxPages pages. pageSize == 0 means
// DefaultPageSize, maxPages == 0 means no limit. The file size must be
// zero or a multiple of the page size; a non zero file resumes at its
// current size.
func NewFileRegion(f *os.File, pageSize int64, maxPages int) (*FileRegion, error) {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "FileRegion: stat")
	}

	if fi.Size()%pageSize != 0 {
		return nil, &ErrINVAL{"FileRegion: file size not page aligned", fi.Size()}
	}

	return &FileRegion{
		file:     f,
		pageSize: pageSize,
		size:     fi.Size(),
		maxPages: maxPages,
		zero:     make([]byte, pageSize),
	}, nil
}

// Grow implements Region.
func (f *FileRegion) Grow() error {
	if f.maxPages != 0 && f.size >= int64(f.maxPages)*f.pageSize {
		return &ErrNOMEM{"FileRegion.Grow"}
	}

	if n, err := f.file.WriteAt(f.zero, f.size); n != len(f.zero) {
		return errors.Wrap(err, "FileRegion.Grow: write")
	}

	f.size += f.pageSize
	return nil
}

// PageSize implements Region.
func (f *FileRegion) PageSize() int64 { return f.pageSize }

// Size implements Region.
func (f *FileRegion) Size() int64 { return f.size }

// ReadAt implements Region.
func (f *FileRegion) ReadAt(b []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, &ErrINVAL{"FileRegion.ReadAt: invalid off", off}
	}

	return f.file.ReadAt(b, off)
}

// WriteAt implements Region.
func (f *FileRegion) WriteAt(b []byte, off int64) (n int, err error) {
	if off < 0 || off+int64(len(b)) > f.size {
		return 0, &ErrINVAL{"FileRegion.WriteAt: invalid off", off}
	}

	return f.file.WriteAt(b, off)
}

// PunchHole implements Region.
func (f *FileRegion) PunchHole(off, size int64) error {
	if off < 0 || size < 0 || off+size > f.size {
		return &ErrINVAL{"FileRegion.PunchHole: invalid range", off}
	}

	return fileutil.PunchHole(f.file, off, size)
}

// Close implements Region.
func (f *FileRegion) Close() error {
	return errors.Wrap(f.file.Close(), "FileRegion.Close")
}
