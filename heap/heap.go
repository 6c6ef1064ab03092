// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The allocator core: request dispatch, splitting, coalescing and the
// region growth protocol.

package heap

// defaultMagic is the header obfuscation constant used when Options
// does not supply one.
const defaultMagic = 0x32906fa1660e92f5

// Options amend the behavior of New. The zero value is ready for use.
type Options struct {
	// Magic is the nonzero constant every header and footer row is
	// XORed with. Leaving it zero selects the package default. All
	// allocators sharing a persistent region image must agree on it.
	Magic uint64

	// PunchThreshold, when nonzero, makes the allocator punch the
	// unused interior of any free block of at least that size out of
	// the region. Heads, links and footers stay in place, so the
	// block remains fully usable; only the leak area is discarded.
	PunchThreshold int64
}

func (o *Options) check() error {
	if o.PunchThreshold < 0 {
		return &ErrINVAL{"Options.PunchThreshold", o.PunchThreshold}
	}

	return nil
}

// Allocator manages a Region as a heap of variable sized blocks. Use
// New to obtain one; the zero value is not usable.
//
// The region layout, the free list discipline and the quick list
// discipline are described in the package documentation. Allocator
// methods must not be interleaved from multiple goroutines.
type Allocator struct {
	r          Region
	magic      uint64
	punch      int64
	flt        flt
	quick      quick
	payload    int64 // aggregate payload of truly allocated blocks
	maxPayload int64 // running maximum of payload
}

// New returns a new Allocator managing r. To start an empty heap, pass
// a Region of zero size; the first allocation bootstraps the prologue
// and epilogue. opts may be nil for defaults.
func New(r Region, opts *Options) (*Allocator, error) {
	if r == nil {
		return nil, &ErrINVAL{"heap.New: nil region", r}
	}

	if opts == nil {
		opts = &Options{}
	}
	if err := opts.check(); err != nil {
		return nil, err
	}

	magic := opts.Magic
	if magic == 0 {
		magic = defaultMagic
	}

	if ps := r.PageSize(); ps%Align != 0 || ps < MinBlock+MinBlock+Align {
		return nil, &ErrINVAL{"heap.New: invalid region page size", ps}
	}

	a := &Allocator{r: r, magic: magic, punch: opts.PunchThreshold}
	a.flt.init(a)
	a.quick.init(a)
	return a, nil
}

// Region returns the Region the allocator manages. Callers use it to
// access payload bytes at the offsets Malloc returns.
func (a *Allocator) Region() Region { return a.r }

// Malloc allocates a block with a payload of n bytes and returns the
// payload offset into the region. n == 0 returns offset 0 and no
// error. Requests above MaxPayload fail with *ErrINVAL; an exhausted
// region fails with *ErrNOMEM.
func (a *Allocator) Malloc(n uint32) (off int64, err error) {
	if n == 0 {
		return 0, nil
	}

	if n > MaxPayload {
		return 0, &ErrINVAL{"Malloc: size out of limits", n}
	}

	if a.r.Size() == 0 {
		if err = a.bootstrap(); err != nil {
			return
		}
	}

	bsz := blockSizeFor(n)
	if off, err = a.serve(n, bsz); err != nil {
		return 0, err
	}

	if off == 0 {
		if err = a.extend(bsz); err != nil {
			return 0, err
		}

		// A big enough free block now exists.
		if off, err = a.serve(n, bsz); err != nil {
			return 0, err
		}

		if off == 0 {
			return 0, &ErrILSEQ{Type: ErrOther, Arg: bsz}
		}
	}

	a.payload += int64(n)
	if a.payload > a.maxPayload {
		a.maxPayload = a.payload
	}
	return off, nil
}

// Free deallocates the block whose payload starts at off.
//
// Free panics with an *ErrINVAL value if off is not the payload offset
// of a live allocated block: nil, unaligned, interior, double-freed
// and quick-list-parked offsets all trap. An invalid free indicates a
// caller bug or memory corruption which no error return can repair.
func (a *Allocator) Free(off int64) {
	b, err := a.validate(off)
	if err != nil {
		panic(err)
	}

	if err = a.free(b); err != nil {
		panic(err)
	}
}

func (a *Allocator) free(b int64) (err error) {
	h, err := a.hdr(b)
	if err != nil {
		return
	}

	a.payload -= int64(h.payloadSize())
	bsz := h.blockSize()
	if i := quickIndex(bsz); i >= 0 {
		if a.quick.lists[i].length == QuickMax {
			if err = a.quick.flush(i); err != nil {
				return
			}

			// The flush may have freed the predecessor of b.
			if h, err = a.hdr(b); err != nil {
				return
			}
		}

		if err = a.quick.park(i, b, h); err != nil {
			return
		}

		return a.setPrevAllocAt(b + bsz)
	}

	fh := pack(0, bsz, h.flags()&flagPrevAlloc)
	if err = a.setHdr(b, fh); err != nil {
		return
	}

	if err = a.setFtr(b, fh); err != nil {
		return
	}

	if err = a.clearPrevAllocAt(b + bsz); err != nil {
		return
	}

	m, err := a.coalesce(b)
	if err != nil {
		return
	}

	return a.insertFree(m)
}

// Realloc resizes the block whose payload starts at off to n payload
// bytes and returns the payload offset of the result, which is off
// itself whenever the block is reused in place. An invalid off yields
// *ErrINVAL and leaves the heap untouched; in particular, offsets of
// quick-list-parked blocks are rejected, not flushed. n == 0 frees the
// block and returns offset 0.
func (a *Allocator) Realloc(off int64, n uint32) (int64, error) {
	b, err := a.validate(off)
	if err != nil {
		return 0, err
	}

	if n == 0 {
		if err = a.free(b); err != nil {
			return 0, err
		}

		return 0, nil
	}

	if n > MaxPayload {
		return 0, &ErrINVAL{"Realloc: size out of limits", n}
	}

	h, err := a.hdr(b)
	if err != nil {
		return 0, err
	}

	psz, bsz := h.payloadSize(), h.blockSize()
	switch {
	case n == psz:
		return off, nil
	case n > psz:
		noff, err := a.Malloc(n)
		if err != nil {
			return 0, err
		}

		buf := make([]byte, psz)
		if rn, err := a.r.ReadAt(buf, off); rn != len(buf) {
			return 0, &ErrILSEQ{Type: ErrOther, Off: off, More: err}
		}

		if wn, err := a.r.WriteAt(buf, noff); wn != len(buf) {
			return 0, &ErrILSEQ{Type: ErrOther, Off: noff, More: err}
		}

		if err = a.free(b); err != nil {
			return 0, err
		}

		return noff, nil
	default: // shrink in place
		nbsz := blockSizeFor(n)
		if rem := bsz - nbsz; rem >= MinBlock {
			if err = a.setHdr(b, pack(n, nbsz, h.flags())); err != nil {
				return 0, err
			}

			sb := b + nbsz
			sh := pack(0, rem, flagPrevAlloc)
			if err = a.setHdr(sb, sh); err != nil {
				return 0, err
			}

			if err = a.setFtr(sb, sh); err != nil {
				return 0, err
			}

			if err = a.clearPrevAllocAt(sb + rem); err != nil {
				return 0, err
			}

			m, err := a.coalesce(sb)
			if err != nil {
				return 0, err
			}

			if err = a.insertFree(m); err != nil {
				return 0, err
			}
		} else {
			if err = a.setHdr(b, pack(n, bsz, h.flags())); err != nil {
				return 0, err
			}
		}
		a.payload -= int64(psz) - int64(n)
		return off, nil
	}
}

// bootstrap lays down the prologue, the epilogue and the initial free
// body on the first page of an empty region.
func (a *Allocator) bootstrap() error {
	if err := a.r.Grow(); err != nil {
		return &ErrNOMEM{"Malloc"}
	}

	if err := a.setHdr(0, pack(0, MinBlock, flagAlloc)); err != nil {
		return err
	}

	epi := a.epilogue()
	if err := a.setHdr(epi, pack(0, 0, flagAlloc)); err != nil {
		return err
	}

	body := int64(MinBlock)
	bh := pack(0, epi-body, flagPrevAlloc)
	if err := a.setHdr(body, bh); err != nil {
		return err
	}

	if err := a.setFtr(body, bh); err != nil {
		return err
	}

	return a.insertFree(body)
}

// serve satisfies a request for a block of size bsz with payload size
// n from the quick lists or the free lists. It returns the payload
// offset, or 0 when no suitable block exists.
func (a *Allocator) serve(n uint32, bsz int64) (int64, error) {
	if i := quickIndex(bsz); i >= 0 && a.quick.lists[i].first != 0 {
		b, err := a.quick.take(i)
		if err != nil {
			return 0, err
		}

		h, err := a.hdr(b)
		if err != nil {
			return 0, err
		}

		if err = a.setHdr(b, pack(n, bsz, h.flags()&flagPrevAlloc|flagAlloc)); err != nil {
			return 0, err
		}

		if err = a.setPrevAllocAt(b + bsz); err != nil {
			return 0, err
		}

		return b + Align, nil
	}

	for i := classOf(bsz); i < NumFreeLists; i++ {
		b, err := a.flt.firstFit(i, bsz)
		if err != nil {
			return 0, err
		}

		if b == 0 {
			continue
		}

		if err = a.flt.remove(b); err != nil {
			return 0, err
		}

		h, err := a.hdr(b)
		if err != nil {
			return 0, err
		}

		if rem := h.blockSize() - bsz; rem >= MinBlock {
			// Split. The remainder's neighbor is known
			// allocated, so no coalescing is needed.
			if err = a.setHdr(b, pack(n, bsz, h.flags()&flagPrevAlloc|flagAlloc)); err != nil {
				return 0, err
			}

			sb := b + bsz
			sh := pack(0, rem, flagPrevAlloc)
			if err = a.setHdr(sb, sh); err != nil {
				return 0, err
			}

			if err = a.setFtr(sb, sh); err != nil {
				return 0, err
			}

			if err = a.insertFree(sb); err != nil {
				return 0, err
			}
		} else {
			if err = a.setHdr(b, pack(n, h.blockSize(), h.flags()&flagPrevAlloc|flagAlloc)); err != nil {
				return 0, err
			}

			if err = a.setPrevAllocAt(b + h.blockSize()); err != nil {
				return 0, err
			}
		}

		return b + Align, nil
	}
	return 0, nil
}

// coalesce merges the free block b, whose header and footer are
// already written, with any free physical neighbors. It returns the
// start of the merged block. Neighbors parked in quick lists count as
// allocated.
func (a *Allocator) coalesce(b int64) (int64, error) {
	h, err := a.hdr(b)
	if err != nil {
		return 0, err
	}

	nb := b + h.blockSize()
	nh, err := a.hdr(nb)
	if err != nil {
		return 0, err
	}

	switch {
	case h.prevAlloc() && nh.alloc():
		return b, nil
	case h.prevAlloc(): // absorb next
		if err = a.flt.remove(nb); err != nil {
			return 0, err
		}

		mh := pack(0, h.blockSize()+nh.blockSize(), h.flags()&flagPrevAlloc)
		if err = a.setHdr(b, mh); err != nil {
			return 0, err
		}

		return b, a.setFtr(b, mh)
	case nh.alloc(): // absorbed by prev
		pb, err := a.prev(b)
		if err != nil {
			return 0, err
		}

		if err = a.flt.remove(pb); err != nil {
			return 0, err
		}

		ph, err := a.hdr(pb)
		if err != nil {
			return 0, err
		}

		mh := pack(0, ph.blockSize()+h.blockSize(), ph.flags()&flagPrevAlloc)
		if err = a.setHdr(pb, mh); err != nil {
			return 0, err
		}

		return pb, a.setFtr(pb, mh)
	default: // absorbed by prev together with next
		pb, err := a.prev(b)
		if err != nil {
			return 0, err
		}

		if err = a.flt.remove(pb); err != nil {
			return 0, err
		}

		if err = a.flt.remove(nb); err != nil {
			return 0, err
		}

		ph, err := a.hdr(pb)
		if err != nil {
			return 0, err
		}

		mh := pack(0, ph.blockSize()+h.blockSize()+nh.blockSize(), ph.flags()&flagPrevAlloc)
		if err = a.setHdr(pb, mh); err != nil {
			return 0, err
		}

		return pb, a.setFtr(pb, mh)
	}
}

// insertFree registers the free block b in its size class, punching
// its leak area out of the region when configured and large enough.
func (a *Allocator) insertFree(b int64) error {
	h, err := a.hdr(b)
	if err != nil {
		return err
	}

	bsz := h.blockSize()
	if a.punch != 0 && bsz >= a.punch {
		// Keep the prev_footer, header and link rows and the
		// footer; only the leak area between them is discarded.
		if leak := bsz - 2*Align; leak > 0 {
			if err = a.r.PunchHole(b+2*Align, leak); err != nil {
				return err
			}
		}
	}

	return a.flt.insert(b, bsz)
}

// extend grows the region until its free tail block reaches at least
// need bytes. A failed page request leaves every prior invariant
// intact and reports *ErrNOMEM; pages acquired before the failure
// remain coalesced in the free tail.
func (a *Allocator) extend(need int64) error {
	tail := a.epilogue()
	sup := int64(0)
	eh, err := a.hdr(tail)
	if err != nil {
		return err
	}

	if !eh.prevAlloc() {
		pf, err := a.prevFtr(tail)
		if err != nil {
			return err
		}

		sup = pf.blockSize()
	}

	for sup < need {
		if err = a.r.Grow(); err != nil {
			return &ErrNOMEM{"Malloc"}
		}

		// On the first round tail is the old epilogue and remove
		// is a no-op; afterwards it is the free tail block
		// inserted by the previous round.
		if err = a.flt.remove(tail); err != nil {
			return err
		}

		old, err := a.hdr(tail)
		if err != nil {
			return err
		}

		epi := a.epilogue()
		if err = a.setHdr(epi, pack(0, 0, flagAlloc)); err != nil {
			return err
		}

		th := pack(0, epi-tail, old.flags()&flagPrevAlloc)
		if err = a.setHdr(tail, th); err != nil {
			return err
		}

		if err = a.setFtr(tail, th); err != nil {
			return err
		}

		if tail, err = a.coalesce(tail); err != nil {
			return err
		}

		if err = a.insertFree(tail); err != nil {
			return err
		}

		mh, err := a.hdr(tail)
		if err != nil {
			return err
		}

		sup = mh.blockSize()
	}
	return nil
}

// validate classifies off as the payload offset of a live allocated
// block, returning the block start, or reports why it is not one.
func (a *Allocator) validate(off int64) (int64, error) {
	if off <= 0 || off%Align != 0 {
		return 0, &ErrINVAL{"invalid payload offset", off}
	}

	sz := a.r.Size()
	b := off - Align
	if b < MinBlock || b+Align > sz {
		return 0, &ErrINVAL{"payload offset outside the region body", off}
	}

	h, err := a.hdr(b)
	if err != nil {
		return 0, &ErrINVAL{"unreadable block header", off}
	}

	bsz := h.blockSize()
	if bsz < MinBlock || bsz%Align != 0 || b+bsz > sz-Align {
		return 0, &ErrINVAL{"invalid block size", off}
	}

	if !h.alloc() || h.inQuick() {
		return 0, &ErrINVAL{"offset does not address an allocated block", off}
	}

	if !h.prevAlloc() {
		pf, err := a.prevFtr(b)
		if err != nil {
			return 0, &ErrINVAL{"unreadable predecessor footer", off}
		}

		psz := pf.blockSize()
		if psz < MinBlock || psz%Align != 0 || b-psz < MinBlock {
			return 0, &ErrINVAL{"inconsistent predecessor footer", off}
		}

		ph, err := a.hdr(b - psz)
		if err != nil || ph != pf || ph.alloc() {
			return 0, &ErrINVAL{"inconsistent predecessor footer", off}
		}
	}

	return b, nil
}
