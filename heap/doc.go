// Copyright 2026 The Segfit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package heap implements a segregated-fit dynamic memory allocator over a
flat, page-granular byte region.

Region

The allocator's working memory is an abstraction provided by a Region: a
linear, contiguous sequence of bytes which can only grow, one page at a
time. The allocator subdivides the region into variable sized blocks and
hands out payload offsets into it. Offsets play the role raw pointers
play in a C allocator; they survive region growth and degrade to plain
integer arithmetic in generated code.

Rows and blocks

A row is an 8 byte word. A block is a contiguous, 16 byte aligned byte
range of at least 32 bytes. A block starts with two bookkeeping rows
followed by the payload area:

	|<-block start        ...          block end->|
	+-------------++--------++--   ...          --+
	|      0      ||    1   ||     2...           |
	+-------------++--------++--   ...          --+
	| prev_footer || header ||     payload        |
	+-------------++--------++--   ...          --+

The header row encodes the caller visible payload size in its high 32
bits and the block size in the low 32 bits; because block sizes are
multiples of 16 the four low bits of the size field are free and carry
the flag bits:

	0x4	block is allocated
	0x2	the physically preceding block is allocated
	0x1	block is parked in a quick list

A free block repeats its header verbatim in a footer row placed at
block start + block size, which is exactly the prev_footer row of the
physically following block. Allocated blocks have no footer; the
prev_footer row of their successor holds payload bytes of the allocated
block and must never be interpreted. A free block further keeps two raw
link rows at the start of its payload area (next at row 2, prev at row
3) which form its free list membership.

Every header and footer row is stored XORed with a fixed nonzero 64 bit
constant, the magic. All accessors unmask transparently. A stray write
into a neighboring header is overwhelmingly likely to unmask into an
invalid size/flag combination which the pointer validator then rejects.
The link rows of free blocks are stored raw; they are never trusted
without the masked header checks passing first.

Prologue and epilogue

The first 32 bytes of the region are an immortal prologue block, always
marked allocated. The last 16 bytes are an epilogue block of size zero,
also always marked allocated; its prev_footer row holds the footer of a
free tail block, if any. The two sentinels remove all boundary checks
from the walk and coalescing paths.

Free lists and quick lists

Free blocks are registered in a table of doubly linked circular lists
with one sentinel per size class: a block of size S belongs to the
smallest class i with S/32 <= 2^i, the last class catching everything
larger. Insertion is LIFO and search is first fit, so freshly freed
blocks are revisited first.

Recently freed small blocks bypass the free lists: a table of per-exact-
size quick lists parks them still flagged allocated, deferring both the
footer write and coalescing. A quick list holds at most QuickMax blocks;
parking into a full list first flushes it, returning every parked block
to the free lists with eager coalescing.

Validity

Free traps (panics with *ErrINVAL) when handed an offset that does not
address the payload of a live allocated block; this is deliberate, as an
invalid free indicates caller state corruption no error return can
repair. Realloc instead reports *ErrINVAL and leaves the heap intact.

The allocator is not safe for concurrent use; callers must serialize
access, as the design is deliberately unsynchronized.

*/
package heap
