// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The block encoding: header/footer packing, masking, flag bits and
// neighbor arithmetic. Everything here is total over well formed
// regions; callers validate before trusting derived values.

package heap

import (
	"encoding/binary"
)

const (
	// Align is the alignment unit. All block sizes and payload
	// offsets are multiples of Align.
	Align = 16

	// RowSize is the size of one header/footer row.
	RowSize = 8

	// MinBlock is the minimum block size: prev_footer and header
	// rows plus two payload/link rows.
	MinBlock = 32

	// DefaultPageSize is the default Region growth granularity.
	DefaultPageSize = 1024

	// NumFreeLists is the number of segregated free list classes.
	NumFreeLists = 10

	// NumQuickLists is the number of per-exact-size quick lists,
	// covering block sizes MinBlock through
	// MinBlock+(NumQuickLists-1)*Align.
	NumQuickLists = 10

	// QuickMax is the capacity of one quick list. Parking into a
	// full list flushes it first.
	QuickMax = 5

	// MaxPayload is the largest payload size Malloc accepts.
	MaxPayload = (1<<32 - 1 - RowSize) &^ (Align - 1)
)

// Flag bits carried in the low bits of the block size field.
const (
	flagInQuick   = 0x1 // block is parked in a quick list
	flagPrevAlloc = 0x2 // the preceding block is allocated (or parked)
	flagAlloc     = 0x4 // block is allocated
	flagMask      = 0xf
)

// header is one unmasked header/footer row: payload size in the high 32
// bits, block size and flags in the low 32.
type header uint64

func pack(payloadSize uint32, blockSize int64, flags uint64) header {
	return header(uint64(payloadSize)<<32 | uint64(uint32(blockSize))&^flagMask | flags&flagMask)
}

func (h header) payloadSize() uint32 { return uint32(h >> 32) }
func (h header) blockSize() int64    { return int64(uint32(h) &^ flagMask) }
func (h header) flags() uint64       { return uint64(h) & flagMask }
func (h header) alloc() bool         { return h&flagAlloc != 0 }
func (h header) prevAlloc() bool     { return h&flagPrevAlloc != 0 }
func (h header) inQuick() bool       { return h&flagInQuick != 0 }

// Link row offsets within a free block, relative to the block start.
const (
	linkNextOff = 2 * RowSize
	linkPrevOff = 3 * RowSize
)

// blockSizeFor returns the aligned block size serving a payload of n
// bytes.
func blockSizeFor(n uint32) int64 {
	bsz := int64(n) + RowSize
	if bsz%Align != 0 {
		bsz = Align * (bsz/Align + 1)
	}
	if bsz < MinBlock {
		bsz = MinBlock
	}
	return bsz
}

// word reads one raw row at off.
func (a *Allocator) word(off int64) (uint64, error) {
	var b [RowSize]byte
	if n, err := a.r.ReadAt(b[:], off); n != RowSize {
		return 0, &ErrILSEQ{Type: ErrOther, Off: off, More: err}
	}

	return binary.LittleEndian.Uint64(b[:]), nil
}

// setWord writes one raw row at off.
func (a *Allocator) setWord(off int64, w uint64) error {
	var b [RowSize]byte
	binary.LittleEndian.PutUint64(b[:], w)
	if n, err := a.r.WriteAt(b[:], off); n != RowSize {
		return &ErrILSEQ{Type: ErrOther, Off: off, More: err}
	}

	return nil
}

// hdr returns the unmasked header of the block at b.
func (a *Allocator) hdr(b int64) (header, error) {
	w, err := a.word(b + RowSize)
	return header(w ^ a.magic), err
}

// setHdr writes the header of the block at b, masked.
func (a *Allocator) setHdr(b int64, h header) error {
	return a.setWord(b+RowSize, uint64(h)^a.magic)
}

// setFtr mirrors h into the footer row of the block at b, which is the
// prev_footer row of its successor.
func (a *Allocator) setFtr(b int64, h header) error {
	return a.setWord(b+h.blockSize(), uint64(h)^a.magic)
}

// prevFtr returns the unmasked footer of the block preceding b. The
// value is meaningful only when that block is free.
func (a *Allocator) prevFtr(b int64) (header, error) {
	w, err := a.word(b)
	return header(w ^ a.magic), err
}

// prev returns the start of the block physically preceding b. Only
// valid when b's prev-allocated flag is clear.
func (a *Allocator) prev(b int64) (int64, error) {
	pf, err := a.prevFtr(b)
	if err != nil {
		return 0, err
	}

	return b - pf.blockSize(), nil
}

// setPrevAllocAt sets the prev-allocated flag of the block at b.
func (a *Allocator) setPrevAllocAt(b int64) error {
	h, err := a.hdr(b)
	if err != nil || h.prevAlloc() {
		return err
	}

	return a.setHdr(b, h|flagPrevAlloc)
}

// clearPrevAllocAt clears the prev-allocated flag of the block at b.
// The caller is responsible for any footer the block may carry; every
// use site coalesces b away immediately afterwards.
func (a *Allocator) clearPrevAllocAt(b int64) error {
	h, err := a.hdr(b)
	if err != nil || !h.prevAlloc() {
		return err
	}

	return a.setHdr(b, h&^flagPrevAlloc)
}

// epilogue returns the start of the epilogue block.
func (a *Allocator) epilogue() int64 { return a.r.Size() - Align }
