// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ftl

// Unmapped is the sentinel L2P value meaning "no physical address", the
// all-ones 32 bit pattern distinct from any valid PPA under the reference
// chip sizing.
const Unmapped uint32 = 0xFFFFFFFF

// l2pTable is the Logical-to-Physical mapping table: a dense array indexed
// by LBA holding either Unmapped or a valid PPA. It is created once at
// Init, filled with Unmapped, and mutated only by Core.write (including the
// reentrant write performed by garbage collection's copy-back step).
type l2pTable []uint32

// newL2PTable returns a table of n entries, all Unmapped.
func newL2PTable(n int) l2pTable {
	t := make(l2pTable, n)
	for i := range t {
		t[i] = Unmapped
	}
	return t
}
