// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"bytes"
	"io"
	"math/rand"
	"testing"
)

func TestMemRegionGrow(t *testing.T) {
	m := NewMemRegion(0, 2)
	if g, e := m.Size(), int64(0); g != e {
		t.Fatal(g, e)
	}

	if g, e := m.PageSize(), int64(DefaultPageSize); g != e {
		t.Fatal(g, e)
	}

	if err := m.Grow(); err != nil {
		t.Fatal(err)
	}

	if err := m.Grow(); err != nil {
		t.Fatal(err)
	}

	if g, e := m.Size(), int64(2*DefaultPageSize); g != e {
		t.Fatal(g, e)
	}

	err := m.Grow()
	if _, ok := err.(*ErrNOMEM); !ok {
		t.Fatal(err)
	}

	if g, e := m.Size(), int64(2*DefaultPageSize); g != e {
		t.Fatal(g, e)
	}
}

func TestMemRegionReadWriteAt(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := NewMemRegion(0, 0)
	for i := 0; i < 3; i++ {
		if err := m.Grow(); err != nil {
			t.Fatal(err)
		}
	}

	// Span two page boundaries.
	b := make([]byte, 1500)
	for i := range b {
		b[i] = byte(rng.Int())
	}

	if n, err := m.WriteAt(b, 700); n != len(b) || err != nil {
		t.Fatal(n, err)
	}

	g := make([]byte, 1500)
	if n, err := m.ReadAt(g, 700); n != len(g) || err != nil {
		t.Fatal(n, err)
	}

	if !bytes.Equal(g, b) {
		t.Fatal("data mismatch")
	}

	// Writes beyond the current size are rejected; growing is
	// Grow's job alone.
	if _, err := m.WriteAt([]byte{1}, m.Size()); err == nil {
		t.Fatal("expected error")
	}

	// Reads beyond the current size report EOF.
	if n, err := m.ReadAt(g, m.Size()-10); n != 10 || err != io.EOF {
		t.Fatal(n, err)
	}

	if _, err := m.ReadAt(g, m.Size()); err != io.EOF {
		t.Fatal(err)
	}
}

func TestMemRegionPunchHole(t *testing.T) {
	m := NewMemRegion(0, 0)
	if err := m.Grow(); err != nil {
		t.Fatal(err)
	}

	if err := m.Grow(); err != nil {
		t.Fatal(err)
	}

	b := bytes.Repeat([]byte{0xff}, int(m.Size()))
	if n, err := m.WriteAt(b, 0); n != len(b) || err != nil {
		t.Fatal(n, err)
	}

	if err := m.PunchHole(1000, 500); err != nil {
		t.Fatal(err)
	}

	g := make([]byte, m.Size())
	if n, err := m.ReadAt(g, 0); n != len(g) {
		t.Fatal(n, err)
	}

	for i, v := range g {
		hole := i >= 1000 && i < 1500
		if hole && v != 0 || !hole && v != 0xff {
			t.Fatal(i, v)
		}
	}

	if err := m.PunchHole(m.Size()-10, 11); err == nil {
		t.Fatal("expected error")
	}
}

func TestMemRegionReadFromWriteTo(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := NewMemRegion(0, 0)
	for i := 0; i < 3; i++ {
		if err := m.Grow(); err != nil {
			t.Fatal(err)
		}
	}

	b := make([]byte, m.Size())
	for i := range b {
		b[i] = byte(rng.Int())
	}
	if n, err := m.WriteAt(b, 0); n != len(b) || err != nil {
		t.Fatal(n, err)
	}

	var buf bytes.Buffer
	if n, err := m.WriteTo(&buf); n != m.Size() || err != nil {
		t.Fatal(n, err)
	}

	m2 := NewMemRegion(0, 0)
	if n, err := m2.ReadFrom(bytes.NewReader(buf.Bytes())); n != int64(len(b)) || err != nil {
		t.Fatal(n, err)
	}

	g := make([]byte, len(b))
	if n, err := m2.ReadAt(g, 0); n != len(g) {
		t.Fatal(n, err)
	}

	if !bytes.Equal(g, b) {
		t.Fatal("data mismatch")
	}

	// A stream which is not a whole number of pages is rejected.
	if _, err := NewMemRegion(0, 0).ReadFrom(bytes.NewReader(b[:100])); err == nil {
		t.Fatal("expected error")
	}
}
