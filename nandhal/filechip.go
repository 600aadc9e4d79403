// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nandhal

import (
	"os"

	"github.com/cznic/fileutil"
	"github.com/cznic/mathutil"
)

// blockStride is the byte distance between the start of consecutive blocks
// in a FileChip's backing file: every page's data followed by its OOB.
func (g Geometry) blockStride() int64 {
	return int64(g.PagesPerBlock) * int64(g.PageSize+g.OOBSize)
}

func (g Geometry) pageOffsetInFile(ppa uint32) int64 {
	block := int64(g.Block(ppa))
	page := int64(g.PageOffset(ppa))
	return block*g.blockStride() + page*int64(g.PageSize+g.OOBSize)
}

// FileChip is an *os.File backed Chip, for simulations whose total capacity
// is inconvenient to hold fully in memory. It is the NAND-domain analogue
// of a SimpleFileFiler: no attempt is made at crash consistency, which is
// out of scope for this layer exactly as it is for the in-memory chip.
//
// An unwritten region of the backing file reads as zero bytes, not 0xFF, so
// FileChip writes the erased pattern explicitly at Init and on every Erase
// rather than relying on a sparse file's implicit zero fill. Erase punches a
// hole over the block's range first, to return disk space to the OS, and
// only then writes the erased pattern over that same range: PunchHole's own
// contract leaves the hole's content filesystem-defined until something
// writes over it, so the explicit erased-pattern write after the hole is
// punched -- not the hole itself -- is what callers' subsequent Reads
// observe.
type FileChip struct {
	geo  Geometry
	file *os.File
	bad  map[int]bool
	ec   []uint64
}

var _ Chip = (*FileChip)(nil)

// NewFileChip returns a FileChip backed by f. f must be open for reading
// and writing; NewFileChip does not take ownership of closing it beyond
// what Close does.
func NewFileChip(f *os.File, geo Geometry, badBlocks ...int) *FileChip {
	c := &FileChip{geo: geo, file: f}
	c.bad = make(map[int]bool, len(badBlocks))
	for _, b := range badBlocks {
		c.bad[b] = true
	}
	return c
}

// Geometry implements Chip.
func (c *FileChip) Geometry() Geometry { return c.geo }

// Init implements Chip.
func (c *FileChip) Init() error {
	c.ec = make([]uint64, c.geo.BlocksPerChip)
	size := c.geo.TotalPages() * int64(c.geo.PageSize+c.geo.OOBSize)
	if err := c.file.Truncate(0); err != nil {
		return err
	}
	if err := c.file.Truncate(size); err != nil {
		return err
	}
	for b := 0; b < c.geo.BlocksPerChip; b++ {
		if err := c.eraseBlockContent(b); err != nil {
			return err
		}
	}
	return nil
}

func (c *FileChip) eraseBlockContent(block int) error {
	buf := make([]byte, c.geo.PageSize+c.geo.OOBSize)
	fill(buf, 0xFF)
	off := int64(block) * c.geo.blockStride()
	for p := 0; p < c.geo.PagesPerBlock; p++ {
		if _, err := c.file.WriteAt(buf, off); err != nil {
			return err
		}
		off += int64(len(buf))
	}
	return nil
}

func (c *FileChip) checkRange(op string, ppa uint32) (block int, err error) {
	block = c.geo.Block(ppa)
	if block < 0 || block >= c.geo.BlocksPerChip || c.geo.PageOffset(ppa) >= c.geo.PagesPerBlock {
		return block, &ErrRange{Op: op, Arg: int64(ppa)}
	}
	return block, nil
}

// Read implements Chip.
func (c *FileChip) Read(ppa uint32, data, oob []byte) error {
	if _, err := c.checkRange("Read", ppa); err != nil {
		return err
	}

	off := c.geo.pageOffsetInFile(ppa)
	if data != nil {
		n := mathutil.Min(len(data), c.geo.PageSize)
		if _, err := c.file.ReadAt(data[:n], off); err != nil {
			return err
		}
	}
	if oob != nil {
		n := mathutil.Min(len(oob), c.geo.OOBSize)
		if _, err := c.file.ReadAt(oob[:n], off+int64(c.geo.PageSize)); err != nil {
			return err
		}
	}
	return nil
}

// Program implements Chip.
//
// FileChip derives the program-once flag from a read of the target page's
// current data before each program: a page is considered unprogrammed
// iff its bytes are still the all-0xFF erased pattern. This is sufficient
// for simulation purposes since client data is never itself all-0xFF for a
// full page in the scenarios exercised here, and it avoids an auxiliary
// written-bit bitmap on disk.
func (c *FileChip) Program(ppa uint32, data, oob []byte) error {
	block, err := c.checkRange("Program", ppa)
	if err != nil {
		return err
	}
	if c.bad[block] {
		return &ErrBadBlock{Op: "Program", Block: block}
	}

	cur := make([]byte, c.geo.PageSize)
	off := c.geo.pageOffsetInFile(ppa)
	if _, err := c.file.ReadAt(cur, off); err != nil {
		return err
	}
	if !allOnes(cur) {
		return &ErrOverwrite{PPA: ppa}
	}

	if data != nil {
		if _, err := c.file.WriteAt(data[:mathutil.Min(len(data), c.geo.PageSize)], off); err != nil {
			return err
		}
	}
	if oob != nil {
		if _, err := c.file.WriteAt(oob[:mathutil.Min(len(oob), c.geo.OOBSize)], off+int64(c.geo.PageSize)); err != nil {
			return err
		}
	}
	return nil
}

// Erase implements Chip.
func (c *FileChip) Erase(block int) error {
	if block < 0 || block >= c.geo.BlocksPerChip {
		return &ErrRange{Op: "Erase", Arg: int64(block)}
	}
	if c.bad[block] {
		return &ErrBadBlock{Op: "Erase", Block: block}
	}

	// Punch the hole before rewriting the erased pattern, never after: the
	// hole's content is filesystem-defined until overwritten, so nothing
	// must read this range between the punch and the write below.
	_ = fileutil.PunchHole(c.file, int64(block)*c.geo.blockStride(), c.geo.blockStride())
	if err := c.eraseBlockContent(block); err != nil {
		return err
	}
	c.ec[block]++
	return nil
}

// IsBad implements Chip.
func (c *FileChip) IsBad(block int) bool {
	if block < 0 || block >= c.geo.BlocksPerChip {
		return true
	}
	return c.bad[block]
}

// EraseCount implements Chip.
func (c *FileChip) EraseCount(block int) uint64 {
	if block < 0 || block >= len(c.ec) {
		return 0
	}
	return c.ec[block]
}

// Close implements Chip.
func (c *FileChip) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// MarkBad flags block as permanently bad. Test/simulation hook only.
func (c *FileChip) MarkBad(block int) {
	c.bad[block] = true
}

func allOnes(b []byte) bool {
	for _, v := range b {
		if v != 0xFF {
			return false
		}
	}
	return true
}
