// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ftl

import "encoding/binary"

// write implements the log allocator's append-only, out-of-place write
// path. It is the single mutator of the L2P table, the write frontier and
// a predecessor block's invalid count.
//
// It is reentrant: garbage collection's copy-back step (gc.go) calls this
// same method to relocate a live page to the current frontier. That call
// never recurses back into ensureFrontier's own GC branch: by the time gc.go
// replays a victim's buffered live pages, it has already pointed the
// frontier at the freshly erased victim with room to spare (see gc.go), so
// every reentrant write here takes the "frontier has room" fast path.
func (c *Core) write(lba uint32, buf []byte) error {
	// Step 1: range check.
	if int(lba) >= c.cfg.LogicalPages {
		return &ErrOutOfRange{LBA: lba, LogicalPages: c.cfg.LogicalPages}
	}

	// Step 2: frontier advance.
	if err := c.ensureFrontier(); err != nil {
		return err
	}

	// Step 3: target PPA.
	targetPPA := c.cfg.Geometry.PPA(c.currentBlock, c.nextPageOffset)

	// Step 4: invalidate predecessor, before the HAL program call so a
	// program failure leaves the system consistent under retry. A
	// spurious increment on a still-valid predecessor (possible only if
	// the subsequent program fails) is safe because GC validates
	// liveness via the LBA<->L2P round-trip, never via this counter.
	if old := c.l2p[lba]; old != Unmapped {
		c.blocks[c.cfg.Geometry.Block(old)].invalidCount++
	}

	// Step 5: OOB stamp -- all-ones reserved bytes, LBA little-endian in
	// the first 4. This back-reference is the sole ground truth GC uses
	// to identify a page's owner; see gc.go's copy-back loop.
	oob := make([]byte, c.cfg.Geometry.OOBSize)
	for i := range oob {
		oob[i] = 0xFF
	}
	binary.LittleEndian.PutUint32(oob[0:4], lba)

	// Step 6: HAL program.
	if err := c.chip.Program(targetPPA, buf, oob); err != nil {
		return &ErrHalProgramFailed{PPA: targetPPA, Err: err}
	}

	c.l2p[lba] = targetPPA
	c.nextPageOffset++
	return nil
}

// ensureFrontier implements free-block acquisition folded into the write
// path: if the active block still has room, it is a no-op. If
// it is full, it first looks for an already-free block; failing that it
// runs exactly one garbage collection pass and checks again. gcPass, when
// it reclaims a block, points the frontier at it directly (see gc.go), so
// the post-GC check here usually finds room without a second scan.
//
// A gcPass failure (a HAL erase or reentrant program failure partway
// through copy-back) is propagated rather than swallowed: the caller has no
// way to know the device is in a state it cannot safely retry otherwise, and
// swallowing it here would let write's own caller believe the page landed
// when the L2P table may still reference data that no longer exists.
func (c *Core) ensureFrontier() error {
	if c.nextPageOffset < c.cfg.Geometry.PagesPerBlock {
		return nil
	}

	if c.switchToFreeBlock() {
		return nil
	}

	if err := c.gcPass(); err != nil {
		return err
	}

	if c.nextPageOffset < c.cfg.Geometry.PagesPerBlock {
		return nil
	}
	if c.switchToFreeBlock() {
		return nil
	}

	return &ErrDeviceFull{}
}

// switchToFreeBlock scans for the first free, non-bad block, and if found
// makes it the active block at offset 0.
func (c *Core) switchToFreeBlock() bool {
	for b := range c.blocks {
		if c.blocks[b].free && !c.chip.IsBad(b) {
			c.blocks[b].free = false
			c.currentBlock = b
			c.nextPageOffset = 0
			return true
		}
	}
	return false
}
