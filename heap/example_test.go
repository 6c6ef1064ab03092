// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap_test

import (
	"fmt"

	"github.com/vectortree/segfit/heap"
)

func Example() {
	a, err := heap.New(heap.NewMemRegion(0, 0), nil)
	if err != nil {
		panic(err)
	}

	off, err := a.Malloc(13)
	if err != nil {
		panic(err)
	}

	if _, err = a.Region().WriteAt([]byte("hello, world!"), off); err != nil {
		panic(err)
	}

	b := make([]byte, 13)
	if _, err = a.Region().ReadAt(b, off); err != nil {
		panic(err)
	}

	fmt.Printf("%s @ %d\n", b, off)
	a.Free(off)
	// Output: hello, world! @ 48
}
