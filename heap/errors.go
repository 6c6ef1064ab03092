// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Error types used by this package.

package heap

import (
	"fmt"
)

// ErrINVAL reports invalid parameters or an invalid payload offset
// passed to Realloc. Free panics with an *ErrINVAL value when its
// validator rejects the offset.
type ErrINVAL struct {
	Src string
	Val interface{}
}

// Error implements the built in error type.
func (e *ErrINVAL) Error() string {
	return fmt.Sprintf("%s: %v", e.Src, e.Val)
}

// ErrNOMEM reports an exhausted Region: a Grow request the page source
// could not honor.
type ErrNOMEM struct {
	Src string
}

// Error implements the built in error type.
func (e *ErrNOMEM) Error() string {
	return fmt.Sprintf("%s: out of memory", e.Src)
}

// ErrPERM reports an operation not permitted in the current state, for
// example restoring a snapshot into a Region which is not empty.
type ErrPERM struct {
	Src string
}

// Error implements the built in error type.
func (e *ErrPERM) Error() string {
	return fmt.Sprintf("%s: operation not permitted", e.Src)
}

// ErrType is the kind of a structural problem found in a region, used
// in ErrILSEQ.
type ErrType int

// ErrILSEQ types
const (
	ErrOther            ErrType = iota // Other errors
	ErrRegionSize                      // Region size is not a multiple of the page size or too small
	ErrProlog                          // Invalid prologue block
	ErrEpilog                          // Invalid epilogue block
	ErrBlockSize                       // Invalid block size (Arg) @ Off
	ErrHeadFoot                        // Footer @ Off does not mirror the header (Arg: low 32 bits of the footer)
	ErrAdjacentFree                    // Adjacent free blocks @ Off and Arg
	ErrPrevFlag                        // prev-allocated flag @ Off contradicts the preceding block
	ErrExpFree                         // Expected a free block @ Off (free list member)
	ErrExpQuick                        // Expected a quick list block @ Off
	ErrFreeChaining                    // Free block @ Off has a broken prev link
	ErrFreeClass                       // Free block @ Off (size Arg) is in the wrong class (Arg2)
	ErrQuickSize                       // Quick list block @ Off (size Arg) in a list for size Arg2
	ErrQuickCount                      // Quick list Off has a stored length Arg but Arg2 chained blocks
	ErrLostFreeBlock                   // Free block @ Off not reachable from the free list table
	ErrLostQuickBlock                  // Quick flagged block @ Off not reachable from any quick list
	ErrWalkTerm                        // Walk from the prologue does not terminate at the epilogue
)

// ErrILSEQ reports a corrupted region image.
type ErrILSEQ struct {
	Type ErrType
	Off  int64
	Arg  int64
	Arg2 int64
	More error
}

// Error implements the built in error type.
func (e *ErrILSEQ) Error() string {
	switch e.Type {
	case ErrRegionSize:
		return fmt.Sprintf("Invalid region size %#x", e.Arg)
	case ErrProlog:
		return fmt.Sprintf("Invalid prologue block @ %#x", e.Off)
	case ErrEpilog:
		return fmt.Sprintf("Invalid epilogue block @ %#x", e.Off)
	case ErrBlockSize:
		return fmt.Sprintf("Invalid block size %d @ %#x", e.Arg, e.Off)
	case ErrHeadFoot:
		return fmt.Sprintf("Footer of free block @ %#x does not mirror its header", e.Off)
	case ErrAdjacentFree:
		return fmt.Sprintf("Adjacent free blocks @ %#x and %#x", e.Off, e.Arg)
	case ErrPrevFlag:
		return fmt.Sprintf("Block @ %#x prev-allocated flag contradicts the preceding block", e.Off)
	case ErrExpFree:
		return fmt.Sprintf("Free list member @ %#x is not a free block", e.Off)
	case ErrExpQuick:
		return fmt.Sprintf("Quick list member @ %#x is not flagged allocated+quick", e.Off)
	case ErrFreeChaining:
		return fmt.Sprintf("Free block @ %#x has a broken prev link", e.Off)
	case ErrFreeClass:
		return fmt.Sprintf("Free block @ %#x, size %d, is filed in class %d", e.Off, e.Arg, e.Arg2)
	case ErrQuickSize:
		return fmt.Sprintf("Quick list block @ %#x, size %d, is in the list for size %d", e.Off, e.Arg, e.Arg2)
	case ErrQuickCount:
		return fmt.Sprintf("Quick list %d stores length %d but chains %d blocks", e.Off, e.Arg, e.Arg2)
	case ErrLostFreeBlock:
		return fmt.Sprintf("Lost free block @ %#x", e.Off)
	case ErrLostQuickBlock:
		return fmt.Sprintf("Lost quick list block @ %#x", e.Off)
	case ErrWalkTerm:
		return fmt.Sprintf("Block walk does not terminate at the epilogue (block @ %#x, size %d)", e.Off, e.Arg)
	}

	more := ""
	if e.More != nil {
		more = ", " + e.More.Error()
	}
	off := ""
	if e.Off != 0 {
		off = fmt.Sprintf(", off: %#x", e.Off)
	}

	return fmt.Sprintf("Error%s%s", off, more)
}
