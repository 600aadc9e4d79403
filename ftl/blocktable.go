// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ftl

// blockInfo is one entry of the Block Info Table: the number of pages
// invalidated since the block's last erase, and whether the block is
// currently free (erased and available for allocation).
//
// is_free=false covers both the active write frontier and a sealed,
// not-yet-erased block; the two are distinguished by comparing the block
// index against Core.currentBlock, not by a field here.
type blockInfo struct {
	invalidCount int
	free         bool
}

// blockTable is the dense, block-indexed liveness record. It is sized
// BlocksPerChip at Init and lives for the process lifetime.
type blockTable []blockInfo

// newBlockTable returns a table of n blocks, all marked free with a zero
// invalid count. Callers are responsible for un-marking the chosen initial
// active block; bad blocks stay marked free here and are excluded by the
// IsBad checks in block allocation and victim selection.
func newBlockTable(n int) blockTable {
	t := make(blockTable, n)
	for i := range t {
		t[i].free = true
	}
	return t
}
