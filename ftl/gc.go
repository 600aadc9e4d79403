// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ftl

import "encoding/binary"

// gcPass runs at most one garbage collection pass: pick a victim block,
// read its still-live pages into memory, erase the victim, point the write
// frontier at it, then replay the buffered pages through write.
//
// gcPass is called only from ensureFrontier (alloc.go), and only when the
// frontier is full and no block is already free -- never from within
// itself. Replaying the buffered pages through write cannot recurse back
// into this function: the frontier it just set has at least one page of
// room (the victim was chosen with invalidCount > 0, so it held at most
// PagesPerBlock-1 live pages), so every reentrant write during the replay
// takes ensureFrontier's "room available" fast path. This is what keeps
// the reentrancy in write's doc comment bounded to one level.
//
// Buffering live pages before erasing, rather than relocating them to a
// separate free block first, is a deliberate departure from relocating
// into untouched free space: with zero free blocks on hand (that is the
// only reason a pass runs at all), the victim itself -- once erased -- is
// the only block copy-back can safely target without re-entering victim
// selection. gcPass returns nil on an ordinary empty pass, in which case the
// caller rescans for a free block and reports ErrDeviceFull if that rescan
// also fails. A HAL failure is returned as is, and the caller passes it on
// without rescanning.
func (c *Core) gcPass() error {
	c.stats.GCPasses++

	victim, ok := c.selectVictim()
	if !ok {
		return nil
	}

	live, err := c.readLivePages(victim)
	if err != nil {
		return err
	}

	if err := c.chip.Erase(victim); err != nil {
		// Victim stays sealed, not free: it is never again picked as a
		// free block, and selectVictim will simply reconsider it on the
		// next pass.
		return &ErrHalEraseFailed{Block: victim, Err: err}
	}

	c.blocks[victim].invalidCount = 0
	c.blocks[victim].free = true
	c.stats.GCBlocksReclaimed++

	c.switchToFreeBlock() // victim is the only free candidate; this always succeeds

	for _, lp := range live {
		if err := c.write(lp.lba, lp.data); err != nil {
			return err
		}
		c.stats.GCPagesRelocated++
	}
	// Each replayed write invalidated its predecessor, which was the
	// victim's own pre-erase copy; the erase already discarded those, and
	// every page now in the victim is live.
	c.blocks[victim].invalidCount = 0
	return nil
}

// selectVictim implements the greedy, maximum-invalid policy: among blocks
// that are neither the active block, free, nor HAL-bad, pick the one with
// the largest invalid page count, breaking ties by the lowest block index.
// A candidate with invalidCount == 0 is never chosen -- erasing it would
// be pure write amplification with no benefit, so the cutoff is strictly
// greater than zero, not >= 0.
//
// blockTable is scanned in ascending index order, so keeping the first
// block seen at each new high-water invalid count (strictly greater than,
// never greater-or-equal) already yields the lowest-index winner on a tie;
// no separate sort is needed.
func (c *Core) selectVictim() (int, bool) {
	best := -1
	bestCount := 0
	for b := range c.blocks {
		if b == c.currentBlock || c.blocks[b].free || c.chip.IsBad(b) {
			continue
		}
		if c.blocks[b].invalidCount <= 0 {
			continue
		}
		if c.blocks[b].invalidCount > bestCount {
			best, bestCount = b, c.blocks[b].invalidCount
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// livePage is one still-referenced page buffered out of a victim block
// before it is erased.
type livePage struct {
	lba  uint32
	data []byte
}

// readLivePages scans every page of victim and returns the data of each
// still-live one, in page order. A page is live iff its OOB-stamped LBA is
// in range and the L2P table still points at exactly this PPA -- the sole
// ground truth, per write's OOB stamp (alloc.go step 5).
//
// A HAL read failure on the OOB half of a page is treated as that page
// being unreadable garbage and the page is skipped. A failure reading the
// data half of a page already found live is returned as an error, so gcPass
// stops before erasing the victim and no live page is dropped.
func (c *Core) readLivePages(victim int) ([]livePage, error) {
	geo := c.cfg.Geometry
	var live []livePage

	for p := 0; p < geo.PagesPerBlock; p++ {
		ppa := geo.PPA(victim, p)

		oob := make([]byte, geo.OOBSize)
		if err := c.chip.Read(ppa, nil, oob); err != nil {
			continue
		}
		lba := binary.LittleEndian.Uint32(oob[0:4])
		if int(lba) >= c.cfg.LogicalPages || c.l2p[lba] != ppa {
			continue // dead: skip
		}

		data := make([]byte, geo.PageSize)
		if err := c.chip.Read(ppa, data, nil); err != nil {
			return nil, err
		}
		live = append(live, livePage{lba: lba, data: data})
	}
	return live, nil
}
