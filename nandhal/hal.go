// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package nandhal is a simulated hardware abstraction layer (HAL) for a raw
NAND flash chip. It models the physical constraints an FTL must hide from
its clients: a page may be programmed at most once between erases of its
containing block, an erase resets an entire block to the all-ones pattern,
and some blocks may be permanently unusable.

Addressing

A page is addressed by a PPA (Physical Page Address), a 32 bit unsigned
integer:

	ppa == block*PagesPerBlock + pageOffset

A Chip does not interpret a PPA beyond splitting it into block and
page-offset; ownership of the logical-to-physical mapping belongs entirely
to the caller (package ftl).

Out-of-band area

Every page carries, in addition to its data, a fixed size out-of-band (OOB)
area. A Chip treats the OOB as an opaque byte slice; it is package ftl that
stamps the first 4 bytes of the OOB with the owning LBA and relies on that
stamp for garbage collection liveness checks.

*/
package nandhal

import "fmt"

// Geometry describes the fixed shape of a simulated chip. The reference
// values are 4096 byte pages, 128 byte OOB, 64 pages per block, 1024
// blocks per chip.
type Geometry struct {
	PageSize      int
	OOBSize       int
	PagesPerBlock int
	BlocksPerChip int
}

// TotalPages returns the number of pages addressable on a chip of this
// geometry.
func (g Geometry) TotalPages() int64 {
	return int64(g.PagesPerBlock) * int64(g.BlocksPerChip)
}

// Block returns the block index a PPA belongs to.
func (g Geometry) Block(ppa uint32) int {
	return int(ppa) / g.PagesPerBlock
}

// PageOffset returns the in-block page offset of a PPA.
func (g Geometry) PageOffset(ppa uint32) int {
	return int(ppa) % g.PagesPerBlock
}

// PPA composes a block index and an in-block page offset into a PPA.
func (g Geometry) PPA(block, pageOffset int) uint32 {
	return uint32(block*g.PagesPerBlock + pageOffset)
}

// DefaultGeometry is the reference chip geometry.
var DefaultGeometry = Geometry{
	PageSize:      4096,
	OOBSize:       128,
	PagesPerBlock: 64,
	BlocksPerChip: 1024,
}

// ErrRange reports an out-of-geometry PPA or block index.
type ErrRange struct {
	Op  string
	Arg int64
}

func (e *ErrRange) Error() string {
	return fmt.Sprintf("nandhal: %s: address out of range: %d", e.Op, e.Arg)
}

// ErrOverwrite reports an attempt to program a page that has already been
// programmed since its block's last erase.
type ErrOverwrite struct {
	PPA uint32
}

func (e *ErrOverwrite) Error() string {
	return fmt.Sprintf("nandhal: page %d already programmed since last erase", e.PPA)
}

// ErrBadBlock reports an operation targeting a block flagged permanently
// bad.
type ErrBadBlock struct {
	Op    string
	Block int
}

func (e *ErrBadBlock) Error() string {
	return fmt.Sprintf("nandhal: %s: block %d is bad", e.Op, e.Block)
}

// Chip is the contract a NAND HAL implementation must satisfy. It is
// consumed exclusively by package ftl; nothing outside of an ftl.Core
// should call it directly.
//
// An implementation MUST initialize every page to the erased pattern
// (0xFF for both data and OOB) at Init and after a successful Erase of the
// page's block. Read and Program MUST treat either buffer argument as
// optional: a nil data or oob means "do not return/consume this part".
type Chip interface {
	// Init prepares the chip for BlocksPerChip*PagesPerBlock pages, all
	// beginning erased.
	Init() error

	// Read copies the page at ppa into data and/or oob, whichever is
	// non-nil. Reading an unprogrammed page yields the erased pattern.
	Read(ppa uint32, data, oob []byte) error

	// Program writes data and oob to the page at ppa. It MUST fail with
	// *ErrOverwrite if the page has already been programmed since its
	// block's last erase, and with *ErrBadBlock if the containing block
	// is bad.
	Program(ppa uint32, data, oob []byte) error

	// Erase resets every page of block to the erased state and
	// increments the block's erase count.
	Erase(block int) error

	// IsBad reports whether block is permanently unusable. A chip with
	// no known-bad blocks returns false for every in-range block.
	IsBad(block int) bool

	// EraseCount reports how many times block has been erased since
	// Init. It exists for diagnostics only; the FTL core MUST NOT base
	// allocation or victim-selection decisions on it.
	EraseCount(block int) uint64

	// Close releases any resources held by the chip. Close MUST be
	// idempotent.
	Close() error

	// Geometry returns the chip's fixed geometry.
	Geometry() Geometry
}
