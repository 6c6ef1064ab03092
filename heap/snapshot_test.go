// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"bytes"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	a := newTestHeap(t, 0)
	x, err := a.Malloc(300)
	if err != nil {
		t.Fatal(err)
	}

	if _, err = a.r.WriteAt(bytes.Repeat([]byte{0x42}, 300), x); err != nil {
		t.Fatal(err)
	}

	y, err := a.Malloc(40)
	if err != nil {
		t.Fatal(err)
	}

	a.Free(y)

	var snap bytes.Buffer
	if err = Snapshot(a.r, &snap); err != nil {
		t.Fatal(err)
	}

	m2 := NewMemRegion(0, 0)
	if err = Restore(m2, bytes.NewReader(snap.Bytes())); err != nil {
		t.Fatal(err)
	}

	if g, e := m2.Size(), a.r.Size(); g != e {
		t.Fatal(g, e)
	}

	var img, img2 bytes.Buffer
	if _, err = a.r.(*MemRegion).WriteTo(&img); err != nil {
		t.Fatal(err)
	}

	if _, err = m2.WriteTo(&img2); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(img.Bytes(), img2.Bytes()) {
		t.Fatal("image mismatch")
	}

	// The restored image walks with the same magic.
	a2, err := New(m2, nil)
	if err != nil {
		t.Fatal(err)
	}

	var blocks int
	err = a2.walk(func(off int64, h header) error {
		blocks++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if blocks < 3 { // prologue, two allocations at least
		t.Fatal(blocks)
	}
}

func TestSnapshotEmpty(t *testing.T) {
	var snap bytes.Buffer
	if err := Snapshot(NewMemRegion(0, 0), &snap); err != nil {
		t.Fatal(err)
	}

	m := NewMemRegion(0, 0)
	if err := Restore(m, bytes.NewReader(snap.Bytes())); err != nil {
		t.Fatal(err)
	}

	if g, e := m.Size(), int64(0); g != e {
		t.Fatal(g, e)
	}
}

func TestRestoreNonEmpty(t *testing.T) {
	m := NewMemRegion(0, 0)
	if err := m.Grow(); err != nil {
		t.Fatal(err)
	}

	err := Restore(m, bytes.NewReader(nil))
	if _, ok := err.(*ErrPERM); !ok {
		t.Fatal(err)
	}
}
