// Package audit implements a log-structured, append-only record store on
// NOR flash.
//
// Records are opaque byte blobs of 1 to 65535 bytes identified by a 16-bit
// id. The store never erases in place: a record is written once, disposed by
// clearing a single bit in each of its part headers, and physically removed
// only when Flush relocates the surviving parts of a page and erases it.
//
// On-flash layout:
//
//	Page:
//	  PageHeader (8 bytes): bit 0 = unused, remaining bits ones
//	  Part, Part, ... back to back until the first unused header
//
//	Part:
//	  Header doubleword 0: unused, valid, reserved(30), id(16), size(16)
//	  Header doubleword 1: part_offset(16), part_size(16), reserved(32)
//	  Payload: part_size bytes, zero-padded to a doubleword
//
// Doublewords are little-endian. A record longer than a quarter page is
// split into parts sharing id and size; parts may span pages.
//
// Usage:
//
//	dev, _ := flash.NewMemory(flash.Geometry{PageSize: 2048, PageCount: 16})
//	store, _ := audit.New(dev)
//
//	id, err := store.Add(event)
//	if errors.Is(err, audit.ErrCtxCheck) {
//	    if _, err := store.Flush(); err == nil {
//	        id, err = store.Add(event)
//	    }
//	}
//
//	data, err := store.Retrieve(id)
//
// There is no in-memory index. Every operation scans the persisted pages,
// so the store is always consistent with flash after a restart.
package audit
