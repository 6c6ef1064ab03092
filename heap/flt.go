// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The segregated free list table.

package heap

// classOf returns the free list class index for a block of size bsz:
// the smallest i with bsz/MinBlock <= 2^i, the last class catching
// everything larger.
func classOf(bsz int64) int {
	r := bsz / MinBlock
	i := 0
	for i < NumFreeLists-1 && r > 1<<uint(i) {
		i++
	}
	return i
}

// sentinel returns the link encoding of the class i list head. List
// links are region offsets for block nodes and negative codes for the
// per-class sentinels, preserving the circular, null-free shape of the
// lists.
func sentinel(i int) int64 { return -int64(i + 1) }

type fltHead struct {
	next, prev int64
}

// flt is the free list table: one doubly linked circular list per size
// class, anchored by an out-of-region sentinel. Block nodes keep their
// links in the first two payload rows.
type flt struct {
	a     *Allocator
	heads [NumFreeLists]fltHead
}

func (f *flt) init(a *Allocator) {
	f.a = a
	for i := range f.heads {
		f.heads[i] = fltHead{next: sentinel(i), prev: sentinel(i)}
	}
}

func (f *flt) next(x int64) (int64, error) {
	if x < 0 {
		return f.heads[-x-1].next, nil
	}

	w, err := f.a.word(x + linkNextOff)
	return int64(w), err
}

func (f *flt) prev(x int64) (int64, error) {
	if x < 0 {
		return f.heads[-x-1].prev, nil
	}

	w, err := f.a.word(x + linkPrevOff)
	return int64(w), err
}

func (f *flt) setNext(x, v int64) error {
	if x < 0 {
		f.heads[-x-1].next = v
		return nil
	}

	return f.a.setWord(x+linkNextOff, uint64(v))
}

func (f *flt) setPrev(x, v int64) error {
	if x < 0 {
		f.heads[-x-1].prev = v
		return nil
	}

	return f.a.setWord(x+linkPrevOff, uint64(v))
}

// insert pushes block b of size bsz to the front of its class list.
func (f *flt) insert(b, bsz int64) error {
	i := classOf(bsz)
	s := sentinel(i)
	first := f.heads[i].next
	if err := f.setPrev(first, b); err != nil {
		return err
	}

	if err := f.setNext(b, first); err != nil {
		return err
	}

	if err := f.setPrev(b, s); err != nil {
		return err
	}

	return f.setNext(s, b)
}

// remove unlinks block b via its stored neighbor links. Removing a
// block flagged allocated is a no-op.
func (f *flt) remove(b int64) error {
	h, err := f.a.hdr(b)
	if err != nil {
		return err
	}

	if h.alloc() {
		return nil
	}

	p, err := f.prev(b)
	if err != nil {
		return err
	}

	n, err := f.next(b)
	if err != nil {
		return err
	}

	if err = f.setNext(p, n); err != nil {
		return err
	}

	return f.setPrev(n, p)
}

// firstFit scans class i head to tail and returns the first block of
// size at least bsz, or 0.
func (f *flt) firstFit(i int, bsz int64) (int64, error) {
	s := sentinel(i)
	for x := f.heads[i].next; x != s; {
		h, err := f.a.hdr(x)
		if err != nil {
			return 0, err
		}

		if h.blockSize() >= bsz {
			return x, nil
		}

		if x, err = f.next(x); err != nil {
			return 0, err
		}
	}
	return 0, nil
}
