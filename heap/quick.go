// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The quick list cache: per-exact-size LIFO stacks of recently freed
// blocks which stay flagged allocated to defer coalescing.

package heap

// quickIndex returns the quick list index for a block of size bsz, or
// -1 when no quick list covers that size.
func quickIndex(bsz int64) int {
	i := (bsz - MinBlock) / Align
	if i < 0 || i >= NumQuickLists {
		return -1
	}
	return int(i)
}

type quickList struct {
	first  int64 // 0 terminates; the prologue is never parked
	length int
}

type quick struct {
	a     *Allocator
	lists [NumQuickLists]quickList
}

func (q *quick) init(a *Allocator) {
	q.a = a
	q.lists = [NumQuickLists]quickList{}
}

// park pushes block b, whose current header is h, onto the quick list
// for its size. The header is rewritten in place: payload zeroed,
// allocated and in-quick flags set, prev-allocated preserved.
func (q *quick) park(i int, b int64, h header) error {
	nh := pack(0, h.blockSize(), h.flags()&flagPrevAlloc|flagAlloc|flagInQuick)
	if err := q.a.setHdr(b, nh); err != nil {
		return err
	}

	if err := q.a.setWord(b+linkNextOff, uint64(q.lists[i].first)); err != nil {
		return err
	}

	q.lists[i].first = b
	q.lists[i].length++
	return nil
}

// take pops and returns the top of quick list i, or 0 when empty. The
// returned block stays flagged allocated; the caller repurposes its
// header, which clears the in-quick flag.
func (q *quick) take(i int) (int64, error) {
	b := q.lists[i].first
	if b == 0 {
		return 0, nil
	}

	n, err := q.a.word(b + linkNextOff)
	if err != nil {
		return 0, err
	}

	q.lists[i].first = int64(n)
	q.lists[i].length--
	return b, nil
}

// flush returns every block parked in quick list i to the free lists:
// clear the quick and allocated flags, write the footer, clear the
// successor's prev-allocated flag, coalesce, insert. The list ends up
// empty.
func (q *quick) flush(i int) error {
	b := q.lists[i].first
	q.lists[i].first = 0
	q.lists[i].length = 0
	for b != 0 {
		n, err := q.a.word(b + linkNextOff)
		if err != nil {
			return err
		}

		h, err := q.a.hdr(b)
		if err != nil {
			return err
		}

		fh := pack(0, h.blockSize(), h.flags()&flagPrevAlloc)
		if err = q.a.setHdr(b, fh); err != nil {
			return err
		}

		if err = q.a.setFtr(b, fh); err != nil {
			return err
		}

		if err = q.a.clearPrevAllocAt(b + fh.blockSize()); err != nil {
			return err
		}

		m, err := q.a.coalesce(b)
		if err != nil {
			return err
		}

		if err = q.a.insertFree(m); err != nil {
			return err
		}

		b = int64(n)
	}
	return nil
}
