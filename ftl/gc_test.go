// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ftl

import (
	"bytes"
	"testing"

	"github.com/terrapin888/252RCOSE34101/nandhal"
)

// TestGCReclaimsAndPreservesLiveData drives a tiny chip hard enough that a
// GC pass must run, then checks the surviving data for every LBA still
// reads back correctly -- the round-trip and mapping-consistency
// invariants through a garbage collection pass specifically, rather than
// through ordinary writes.
func TestGCReclaimsAndPreservesLiveData(t *testing.T) {
	geo := nandhal.Geometry{PageSize: 32, OOBSize: 16, PagesPerBlock: 4, BlocksPerChip: 4}
	const logicalPages = 6

	c := newTestCore(t, geo, logicalPages)
	defer c.Close()

	want := make(map[uint32][]byte)
	write := func(lba uint32, v byte) {
		buf := allBytes(geo.PageSize, v)
		if err := c.Write(lba, buf); err != nil {
			t.Fatalf("write lba %d: %v", lba, err)
		}
		want[lba] = buf
	}

	// Fill every LBA once, then keep rewriting a rotating subset so old
	// blocks accumulate invalid pages and free blocks run out, forcing
	// ensureFrontier into gcPass.
	for lba := uint32(0); lba < logicalPages; lba++ {
		write(lba, byte(lba)+1)
	}
	for i := 0; i < 200; i++ {
		write(uint32(i%logicalPages), byte(i))
	}

	if c.Stats().GCPasses == 0 {
		t.Fatalf("expected garbage collection to have run")
	}
	if c.Stats().GCBlocksReclaimed == 0 {
		t.Fatalf("expected at least one block reclaimed")
	}

	out := make([]byte, geo.PageSize)
	for lba, buf := range want {
		if err := c.Read(lba, out); err != nil {
			t.Fatalf("read lba %d: %v", lba, err)
		}
		if !bytes.Equal(out, buf) {
			t.Fatalf("lba %d: got %x, want %x", lba, out, buf)
		}
	}

	// Mapping consistency: every mapped LBA's OOB stamp must round-trip.
	oob := make([]byte, geo.OOBSize)
	for lba := uint32(0); lba < logicalPages; lba++ {
		ppa := c.l2p[lba]
		if ppa == Unmapped {
			continue
		}
		if err := c.chip.Read(ppa, nil, oob); err != nil {
			t.Fatalf("read oob for ppa %d: %v", ppa, err)
		}
		got := uint32(oob[0]) | uint32(oob[1])<<8 | uint32(oob[2])<<16 | uint32(oob[3])<<24
		if got != lba {
			t.Fatalf("oob stamp for lba %d (ppa %d) = %d", lba, ppa, got)
		}
	}
}

// TestSelectVictimPrefersMostInvalidAndSkipsClean exercises selectVictim
// directly: a block with zero invalid pages must never be picked (the
// ">  0" cutoff), a free block is skipped whatever its count, and among
// eligible blocks the one with the largest invalid count wins.
func TestSelectVictimPrefersMostInvalidAndSkipsClean(t *testing.T) {
	geo := nandhal.Geometry{PageSize: 32, OOBSize: 16, PagesPerBlock: 4, BlocksPerChip: 5}
	c := newTestCore(t, geo, 20)
	defer c.Close()

	// Block 0 is the active block and must never be chosen.
	c.currentBlock = 0

	c.blocks[1].free = false
	c.blocks[1].invalidCount = 0 // ineligible: nothing to reclaim

	c.blocks[2].free = false
	c.blocks[2].invalidCount = 2

	c.blocks[3].free = false
	c.blocks[3].invalidCount = 3 // the clear winner

	c.blocks[4].free = true
	c.blocks[4].invalidCount = 5 // ineligible: already free

	victim, ok := c.selectVictim()
	if !ok {
		t.Fatalf("expected a victim to be found")
	}
	if victim != 3 {
		t.Fatalf("selectVictim = %d, want 3", victim)
	}
}

func TestSelectVictimNoneWhenAllClean(t *testing.T) {
	geo := nandhal.Geometry{PageSize: 32, OOBSize: 16, PagesPerBlock: 4, BlocksPerChip: 3}
	c := newTestCore(t, geo, 10)
	defer c.Close()

	for b := range c.blocks {
		c.blocks[b].free = false
		c.blocks[b].invalidCount = 0
	}

	if _, ok := c.selectVictim(); ok {
		t.Fatalf("expected no victim when every block is clean")
	}
}

// BenchmarkHotLBAWrite profiles the write path under exactly the workload
// that forces garbage collection to run continuously: a small set of LBAs
// rewritten far more often than the chip holds free blocks.
func BenchmarkHotLBAWrite(b *testing.B) {
	geo := nandhal.Geometry{PageSize: 4096, OOBSize: 128, PagesPerBlock: 64, BlocksPerChip: 128}
	const hotLBAs = 200

	chip := nandhal.NewMemChip(geo)
	c, err := New(chip, Config{Geometry: geo, LogicalPages: hotLBAs})
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	defer c.Close()

	buf := allBytes(geo.PageSize, 0xAB)
	b.SetBytes(int64(geo.PageSize))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := c.Write(uint32(i%hotLBAs), buf); err != nil {
			b.Fatalf("write %d: %v", i, err)
		}
	}

	b.StopTimer()
	b.Logf("%d GC passes, %d blocks reclaimed, %d pages relocated", c.Stats().GCPasses, c.Stats().GCBlocksReclaimed, c.Stats().GCPagesRelocated)
}
