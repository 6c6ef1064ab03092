// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Structural verification of a region image.

package heap

// Stats records statistics about a heap. It can be optionally filled
// by Allocator.Verify, if successful.
type Stats struct {
	TotalBytes   int64 // region size
	AllocBlocks  int64 // truly allocated blocks, sentinels excluded
	AllocBytes   int64 // block bytes of truly allocated blocks
	PayloadBytes int64 // payload bytes of truly allocated blocks
	FreeBlocks   int64 // blocks registered in the free lists
	FreeBytes    int64 // block bytes of free blocks
	QuickBlocks  int64 // blocks parked in quick lists
	QuickBytes   int64 // block bytes of quick list blocks
}

// walk visits every block between the prologue and the epilogue via
// block size arithmetic, the prologue included, the epilogue excluded.
// It fails with *ErrILSEQ when the chain does not tile the region body
// exactly.
func (a *Allocator) walk(fn func(off int64, h header) error) error {
	sz := a.r.Size()
	if sz == 0 {
		return nil
	}

	epi := sz - Align
	for off := int64(0); off < epi; {
		h, err := a.hdr(off)
		if err != nil {
			return err
		}

		bsz := h.blockSize()
		if bsz < MinBlock || bsz%Align != 0 || off+bsz > epi {
			return &ErrILSEQ{Type: ErrWalkTerm, Off: off, Arg: bsz}
		}

		if err = fn(off, h); err != nil {
			return err
		}

		off += bsz
	}
	return nil
}

var nolog = func(error) bool { return false }

// Verify attempts to find any structural errors in the region wrt the
// organization of it as defined by Allocator. Any problems found are
// reported to 'log' except non verify related errors like region read
// fails. The verification process stops at the first problem found and
// returns it from the Verify function; the value 'log' returns is not
// consulted. Passing a nil log discards the report.
//
// The process scans the region three times: once walking the block
// chain, once chasing the free list links and once chasing the quick
// list links. Statistics are returned via 'stats' if non nil; they are
// valid only if Verify succeeded.
func (a *Allocator) Verify(log func(error) bool, stats *Stats) (err error) {
	if log == nil {
		log = nolog
	}

	sz := a.r.Size()
	var st Stats
	st.TotalBytes = sz
	if sz == 0 {
		if stats != nil {
			*stats = st
		}
		return nil
	}

	if sz%a.r.PageSize() != 0 || sz < MinBlock+Align {
		err = &ErrILSEQ{Type: ErrRegionSize, Arg: sz}
		log(err)
		return
	}

	ph, err := a.hdr(0)
	if err != nil {
		return
	}

	if ph.blockSize() != MinBlock || !ph.alloc() || ph.inQuick() {
		err = &ErrILSEQ{Type: ErrProlog, Off: 0}
		log(err)
		return
	}

	epi := sz - Align
	eh, err := a.hdr(epi)
	if err != nil {
		return
	}

	if uint32(eh)&^flagMask != 0 || !eh.alloc() || eh.inQuick() {
		err = &ErrILSEQ{Type: ErrEpilog, Off: epi}
		log(err)
		return
	}

	// Phase 1 - walk the block chain, checking flags, footers and
	// adjacency against the physical order.
	var (
		free      = map[int64]bool{} // free block -> reached from the table
		quickSeen = map[int64]bool{} // parked block -> reached from its list
		prevAlloc = true             // prologue
		prevFree  = int64(-1)
		lastOff   int64
		lastH     header
	)

	err = a.walk(func(off int64, h header) error {
		lastOff, lastH = off, h
		if off != 0 && h.prevAlloc() != prevAlloc {
			e := &ErrILSEQ{Type: ErrPrevFlag, Off: off}
			log(e)
			return e
		}

		if h.inQuick() && !h.alloc() {
			e := &ErrILSEQ{Type: ErrExpQuick, Off: off}
			log(e)
			return e
		}

		switch {
		case !h.alloc():
			ft, err := a.prevFtr(off + h.blockSize())
			if err != nil {
				return err
			}

			if ft != h {
				e := &ErrILSEQ{Type: ErrHeadFoot, Off: off, Arg: int64(uint32(ft))}
				log(e)
				return e
			}

			if prevFree >= 0 {
				e := &ErrILSEQ{Type: ErrAdjacentFree, Off: prevFree, Arg: off}
				log(e)
				return e
			}

			free[off] = false
			prevFree = off
			st.FreeBlocks++
			st.FreeBytes += h.blockSize()
		case h.inQuick():
			quickSeen[off] = false
			prevFree = -1
			st.QuickBlocks++
			st.QuickBytes += h.blockSize()
		case off != 0:
			prevFree = -1
			st.AllocBlocks++
			st.AllocBytes += h.blockSize()
			st.PayloadBytes += int64(h.payloadSize())
		default: // prologue
			prevFree = -1
		}
		prevAlloc = h.alloc()
		return nil
	})
	if err != nil {
		if e, ok := err.(*ErrILSEQ); ok && e.Type == ErrWalkTerm {
			log(err)
		}
		return
	}

	if lastOff+lastH.blockSize() != epi {
		err = &ErrILSEQ{Type: ErrWalkTerm, Off: lastOff, Arg: lastH.blockSize()}
		log(err)
		return
	}

	if eh.prevAlloc() != prevAlloc {
		err = &ErrILSEQ{Type: ErrPrevFlag, Off: epi}
		log(err)
		return
	}

	// Phase 2 - chase the free list links, checking membership,
	// class assignment and chaining symmetry.
	for i := 0; i < NumFreeLists; i++ {
		s := sentinel(i)
		prev := s
		for x := a.flt.heads[i].next; x != s; {
			reached, ok := free[x]
			if !ok || reached {
				err = &ErrILSEQ{Type: ErrExpFree, Off: x}
				log(err)
				return
			}

			free[x] = true
			h, err2 := a.hdr(x)
			if err2 != nil {
				return err2
			}

			if g := classOf(h.blockSize()); g != i {
				err = &ErrILSEQ{Type: ErrFreeClass, Off: x, Arg: h.blockSize(), Arg2: int64(i)}
				log(err)
				return
			}

			p, err2 := a.flt.prev(x)
			if err2 != nil {
				return err2
			}

			if p != prev {
				err = &ErrILSEQ{Type: ErrFreeChaining, Off: x}
				log(err)
				return
			}

			prev = x
			if x, err2 = a.flt.next(x); err2 != nil {
				return err2
			}
		}
	}

	for off, reached := range free {
		if !reached {
			err = &ErrILSEQ{Type: ErrLostFreeBlock, Off: off}
			log(err)
			return
		}
	}

	// Phase 3 - chase the quick list links.
	for i := 0; i < NumQuickLists; i++ {
		want := int64(MinBlock + i*Align)
		n := 0
		for x := a.quick.lists[i].first; x != 0; {
			reached, ok := quickSeen[x]
			if !ok || reached {
				err = &ErrILSEQ{Type: ErrExpQuick, Off: x}
				log(err)
				return
			}

			quickSeen[x] = true
			n++
			h, err2 := a.hdr(x)
			if err2 != nil {
				return err2
			}

			if h.blockSize() != want {
				err = &ErrILSEQ{Type: ErrQuickSize, Off: x, Arg: h.blockSize(), Arg2: want}
				log(err)
				return
			}

			w, err2 := a.word(x + linkNextOff)
			if err2 != nil {
				return err2
			}

			x = int64(w)
		}
		if n != a.quick.lists[i].length {
			err = &ErrILSEQ{Type: ErrQuickCount, Off: int64(i), Arg: int64(a.quick.lists[i].length), Arg2: int64(n)}
			log(err)
			return
		}
	}

	for off, reached := range quickSeen {
		if !reached {
			err = &ErrILSEQ{Type: ErrLostQuickBlock, Off: off}
			log(err)
			return
		}
	}

	if stats != nil {
		*stats = st
	}
	return nil
}
