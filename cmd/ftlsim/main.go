// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ftlsim drives an in-memory ftl.Core through a hot-LBA write
// workload and reports the garbage collection activity it provoked.
package main

import (
	"bytes"
	"flag"
	"log"
	"time"

	"github.com/terrapin888/252RCOSE34101/ftl"
	"github.com/terrapin888/252RCOSE34101/nandhal"
)

var (
	pageSize      = flag.Int("pagesize", nandhal.DefaultGeometry.PageSize, "bytes per page")
	oobSize       = flag.Int("oobsize", nandhal.DefaultGeometry.OOBSize, "bytes of out-of-band metadata per page")
	pagesPerBlock = flag.Int("ppb", nandhal.DefaultGeometry.PagesPerBlock, "pages per erase block")
	blocksPerChip = flag.Int("bpc", nandhal.DefaultGeometry.BlocksPerChip, "erase blocks per chip")
	logicalPages  = flag.Int("logical", ftl.DefaultConfig.LogicalPages, "logical page count exposed to clients")
	hotLBAs       = flag.Int("hot", 200, "number of distinct LBAs the workload rotates through")
	iterations    = flag.Int("n", 80000, "total writes to perform")
	verifyLBA     = flag.Int("verify", 199, "LBA to read back and verify after the run")
)

func main() {
	flag.Parse()

	geo := nandhal.Geometry{
		PageSize:      *pageSize,
		OOBSize:       *oobSize,
		PagesPerBlock: *pagesPerBlock,
		BlocksPerChip: *blocksPerChip,
	}
	cfg := ftl.Config{Geometry: geo, LogicalPages: *logicalPages}

	chip := nandhal.NewMemChip(geo)
	core, err := ftl.New(chip, cfg)
	if err != nil {
		log.Fatalf("ftl.New: %v", err)
	}
	defer core.Close()

	payload := bytes.Repeat([]byte{0xAB}, geo.PageSize)

	log.Printf("writing %d pages across %d hot LBAs (geometry: %d pages/block, %d blocks)",
		*iterations, *hotLBAs, geo.PagesPerBlock, geo.BlocksPerChip)

	t0 := time.Now()
	for i := 0; i < *iterations; i++ {
		lba := uint32(i % *hotLBAs)
		if err := core.Write(lba, payload); err != nil {
			log.Fatalf("write #%d (lba %d): %v", i, lba, err)
		}
		if i > 0 && i%10000 == 0 {
			log.Printf("%d writes done, %s", i, core.PrintMap(lba))
		}
	}
	elapsed := time.Since(t0)

	out := make([]byte, geo.PageSize)
	if err := core.Read(uint32(*verifyLBA), out); err != nil {
		log.Fatalf("verify read(%d): %v", *verifyLBA, err)
	}
	if !bytes.Equal(out, payload) {
		log.Fatalf("verify read(%d) mismatch: got %x..., want %x...", *verifyLBA, out[:8], payload[:8])
	}

	stats := core.Stats()
	log.Printf("done in %s: %d writes, %d GC passes, %d blocks reclaimed, %d pages relocated",
		elapsed, stats.Writes, stats.GCPasses, stats.GCBlocksReclaimed, stats.GCPagesRelocated)
}
