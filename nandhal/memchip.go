// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nandhal

import (
	"github.com/cznic/mathutil"
)

// page is the in-memory representation of one NAND page: a data area, an
// OOB area and a flag recording whether it has been programmed since its
// block's last erase.
type page struct {
	data    []byte
	oob     []byte
	written bool
}

// MemChip is a memory backed Chip. Pages are held in a sparse map keyed by
// PPA so that a chip with a large BlocksPerChip does not pre-allocate
// storage for blocks that are never written.
//
// MemChip is not safe for concurrent use; package ftl never calls it from
// more than one goroutine at a time -- all public operations are
// single-threaded and synchronous.
type MemChip struct {
	geo        Geometry
	pages      map[uint32]*page
	bad        map[int]bool
	eraseCount []uint64
	closed     bool
}

var _ Chip = (*MemChip)(nil)

// NewMemChip returns a MemChip of the given geometry. badBlocks names
// block indices that should be permanently reported as bad, modeling
// factory-marked bad blocks a real chip ships with.
func NewMemChip(geo Geometry, badBlocks ...int) *MemChip {
	c := &MemChip{geo: geo}
	c.bad = make(map[int]bool, len(badBlocks))
	for _, b := range badBlocks {
		c.bad[b] = true
	}
	return c
}

// Geometry implements Chip.
func (c *MemChip) Geometry() Geometry { return c.geo }

// Init implements Chip.
func (c *MemChip) Init() error {
	c.pages = make(map[uint32]*page)
	c.eraseCount = make([]uint64, c.geo.BlocksPerChip)
	c.closed = false
	return nil
}

func (c *MemChip) checkRange(op string, ppa uint32) (block int, err error) {
	block = c.geo.Block(ppa)
	if block < 0 || block >= c.geo.BlocksPerChip || c.geo.PageOffset(ppa) >= c.geo.PagesPerBlock {
		return block, &ErrRange{Op: op, Arg: int64(ppa)}
	}
	return block, nil
}

// Read implements Chip.
func (c *MemChip) Read(ppa uint32, data, oob []byte) error {
	if _, err := c.checkRange("Read", ppa); err != nil {
		return err
	}

	pg := c.pages[ppa]
	if data != nil {
		n := mathutil.Min(len(data), c.geo.PageSize)
		if pg == nil {
			fill(data[:n], 0xFF)
		} else {
			copy(data[:n], pg.data)
		}
	}
	if oob != nil {
		n := mathutil.Min(len(oob), c.geo.OOBSize)
		if pg == nil {
			fill(oob[:n], 0xFF)
		} else {
			copy(oob[:n], pg.oob)
		}
	}
	return nil
}

// Program implements Chip.
func (c *MemChip) Program(ppa uint32, data, oob []byte) error {
	block, err := c.checkRange("Program", ppa)
	if err != nil {
		return err
	}
	if c.bad[block] {
		return &ErrBadBlock{Op: "Program", Block: block}
	}

	pg := c.pages[ppa]
	if pg != nil && pg.written {
		return &ErrOverwrite{PPA: ppa}
	}
	if pg == nil {
		pg = &page{
			data: make([]byte, c.geo.PageSize),
			oob:  make([]byte, c.geo.OOBSize),
		}
		fill(pg.data, 0xFF)
		fill(pg.oob, 0xFF)
		c.pages[ppa] = pg
	}
	if data != nil {
		copy(pg.data, data[:mathutil.Min(len(data), c.geo.PageSize)])
	}
	if oob != nil {
		copy(pg.oob, oob[:mathutil.Min(len(oob), c.geo.OOBSize)])
	}
	pg.written = true
	return nil
}

// Erase implements Chip.
func (c *MemChip) Erase(block int) error {
	if block < 0 || block >= c.geo.BlocksPerChip {
		return &ErrRange{Op: "Erase", Arg: int64(block)}
	}
	if c.bad[block] {
		return &ErrBadBlock{Op: "Erase", Block: block}
	}

	for p := 0; p < c.geo.PagesPerBlock; p++ {
		delete(c.pages, c.geo.PPA(block, p))
	}
	c.eraseCount[block]++
	return nil
}

// IsBad implements Chip.
func (c *MemChip) IsBad(block int) bool {
	if block < 0 || block >= c.geo.BlocksPerChip {
		return true
	}
	return c.bad[block]
}

// EraseCount implements Chip.
func (c *MemChip) EraseCount(block int) uint64 {
	if block < 0 || block >= len(c.eraseCount) {
		return 0
	}
	return c.eraseCount[block]
}

// Close implements Chip.
func (c *MemChip) Close() error {
	if c.closed {
		return nil
	}
	c.pages = nil
	c.closed = true
	return nil
}

// MarkBad flags block as permanently bad, as if the factory bad-block scan
// had found it. It is a test/simulation hook, not part of the Chip contract
// consumed by ftl.
func (c *MemChip) MarkBad(block int) {
	c.bad[block] = true
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
