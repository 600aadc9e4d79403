// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nandhal

import (
	"os"
	"testing"
)

func smallGeometry() Geometry {
	return Geometry{PageSize: 64, OOBSize: 16, PagesPerBlock: 4, BlocksPerChip: 4}
}

func TestFileChipProgramThenRead(t *testing.T) {
	f, err := os.CreateTemp("", "nandhal-filechip-*.img")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	geo := smallGeometry()
	c := NewFileChip(f, geo)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}

	data := make([]byte, geo.PageSize)
	for i := range data {
		data[i] = 0xCD
	}
	oob := make([]byte, geo.OOBSize)
	oob[0] = 42

	ppa := geo.PPA(1, 2)
	if err := c.Program(ppa, data, oob); err != nil {
		t.Fatal(err)
	}

	rd := make([]byte, geo.PageSize)
	ro := make([]byte, geo.OOBSize)
	if err := c.Read(ppa, rd, ro); err != nil {
		t.Fatal(err)
	}
	if rd[0] != 0xCD || ro[0] != 42 {
		t.Fatalf("read back mismatch: data[0]=%x oob[0]=%x", rd[0], ro[0])
	}

	if err := c.Program(ppa, data, oob); err == nil {
		t.Fatal("expected overwrite to fail")
	}
}

func TestFileChipEraseResets(t *testing.T) {
	f, err := os.CreateTemp("", "nandhal-filechip-*.img")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	geo := smallGeometry()
	c := NewFileChip(f, geo)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}

	ppa := geo.PPA(0, 0)
	data := make([]byte, geo.PageSize)
	for i := range data {
		data[i] = 0xCD
	}
	if err := c.Program(ppa, data, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Erase(0); err != nil {
		t.Fatal(err)
	}

	rd := make([]byte, geo.PageSize)
	if err := c.Read(ppa, rd, nil); err != nil {
		t.Fatal(err)
	}
	if !allOnes(rd) {
		t.Fatalf("page read after erase is not all-0xFF: %x", rd[:8])
	}

	if err := c.Program(ppa, data, nil); err != nil {
		t.Fatalf("reprogram after erase should succeed: %v", err)
	}
	if c.EraseCount(0) != 1 {
		t.Fatalf("expected erase count 1, got %d", c.EraseCount(0))
	}
}
