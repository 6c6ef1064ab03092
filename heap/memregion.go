// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A memory-only implementation of Region.

package heap

import (
	"io"

	"github.com/cznic/mathutil"
)

var _ Region = &MemRegion{} // Ensure MemRegion is a Region.

// MemRegion is a memory backed Region. Storage is allocated one page at
// a time, so a MemRegion never holds more memory than has actually been
// requested from it. MemRegion is not automatically persistent, but it
// has ReadFrom and WriteTo methods.
type MemRegion struct {
	pages    [][]byte
	pageSize int64
	maxPages int
}

// NewMemRegion returns a new MemRegion growing by pageSize bytes per
// page, up to maxPages pages. pageSize must be a positive multiple of
// Align; pageSize == 0 means DefaultPageSize. maxPages == 0 means no
// limit.
func NewMemRegion(pageSize int64, maxPages int) *MemRegion {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &MemRegion{pageSize: pageSize, maxPages: maxPages}
}

// Grow implements Region.
func (m *MemRegion) Grow() error {
	if m.maxPages != 0 && len(m.pages) >= m.maxPages {
		return &ErrNOMEM{"MemRegion.Grow"}
	}

	m.pages = append(m.pages, make([]byte, m.pageSize))
	return nil
}

// PageSize implements Region.
func (m *MemRegion) PageSize() int64 { return m.pageSize }

// Size implements Region.
func (m *MemRegion) Size() int64 { return int64(len(m.pages)) * m.pageSize }

// ReadAt implements Region.
func (m *MemRegion) ReadAt(b []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, &ErrINVAL{"MemRegion.ReadAt: invalid off", off}
	}

	avail := m.Size() - off
	if avail <= 0 {
		return 0, io.EOF
	}

	rem := len(b)
	if int64(rem) > avail {
		rem = int(avail)
		err = io.EOF
	}
	for rem != 0 {
		pg := m.pages[off/m.pageSize]
		pgO := int(off % m.pageSize)
		nc := copy(b[:mathutil.Min(rem, int(m.pageSize)-pgO)], pg[pgO:])
		off += int64(nc)
		rem -= nc
		n += nc
		b = b[nc:]
	}
	return
}

// WriteAt implements Region.
func (m *MemRegion) WriteAt(b []byte, off int64) (n int, err error) {
	if off < 0 || off+int64(len(b)) > m.Size() {
		return 0, &ErrINVAL{"MemRegion.WriteAt: invalid off", off}
	}

	rem := len(b)
	var nc int
	for rem != 0 {
		pg := m.pages[off/m.pageSize]
		pgO := int(off % m.pageSize)
		nc = copy(pg[pgO:], b[:mathutil.Min(rem, int(m.pageSize)-pgO)])
		off += int64(nc)
		rem -= nc
		n += nc
		b = b[nc:]
	}
	return
}

// PunchHole implements Region. The hole is zero filled.
func (m *MemRegion) PunchHole(off, size int64) error {
	if off < 0 || size < 0 || off+size > m.Size() {
		return &ErrINVAL{"MemRegion.PunchHole: invalid range", off}
	}

	for size != 0 {
		pg := m.pages[off/m.pageSize]
		pgO := off % m.pageSize
		nc := mathutil.MinInt64(size, m.pageSize-pgO)
		z := pg[pgO : pgO+nc]
		for i := range z {
			z[i] = 0
		}
		off += nc
		size -= nc
	}
	return nil
}

// Close implements Region.
func (m *MemRegion) Close() error {
	m.pages = nil
	return nil
}

// ReadFrom is a helper to populate MemRegion's content from r. The
// stream length must be a multiple of the page size. 'n' reports the
// number of bytes read from 'r'.
func (m *MemRegion) ReadFrom(r io.Reader) (n int64, err error) {
	m.pages = m.pages[:0]
	var rerr error
	for rerr == nil {
		pg := make([]byte, m.pageSize)
		var rn int
		if rn, rerr = io.ReadFull(r, pg); rn != 0 {
			if int64(rn) != m.pageSize {
				return n, &ErrINVAL{"MemRegion.ReadFrom: stream length not page aligned", n + int64(rn)}
			}

			if m.maxPages != 0 && len(m.pages) >= m.maxPages {
				return n, &ErrNOMEM{"MemRegion.ReadFrom"}
			}

			m.pages = append(m.pages, pg)
			n += int64(rn)
		}
	}
	if rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
		err = rerr
	}
	return
}

// WriteTo is a helper to copy/persist MemRegion's content to w. 'n'
// reports the number of bytes written to 'w'.
func (m *MemRegion) WriteTo(w io.Writer) (n int64, err error) {
	for _, pg := range m.pages {
		wn, werr := w.Write(pg)
		n += int64(wn)
		if werr != nil {
			return n, werr
		}

		if wn != len(pg) {
			return n, io.ErrShortWrite
		}
	}
	return
}
