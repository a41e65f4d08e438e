package vmm

import (
	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
)

var errRemap = &kernel.Error{Module: "vmm", Message: "remap"}

// mapPages creates entries for the virtual pages in [virtAddr, virtAddr+size)
// that refer to consecutive physical pages starting at physAddr. Neither
// virtAddr nor size need to be page-aligned. Mapping a page that is already
// valid is fatal.
//
// An error is returned only when a second-level table cannot be allocated;
// pages mapped before the failure are left in place.
func (pt *PageTable) mapPages(asid ASID, virtAddr, size, physAddr uintptr, flags PageTableEntryFlag) *kernel.Error {
	if size == 0 {
		return nil
	}

	page := PageFromAddress(virtAddr)
	last := PageFromAddress(virtAddr + size - 1)
	for ; ; page, physAddr = page+1, physAddr+uintptr(mem.PageSize) {
		slot, err := pt.walk(asid, page.Address(), true, true)
		if err != nil {
			return err
		}

		if slot.Half(page.Parity()).HasFlags(FlagValid) {
			panicFn(errRemap)
			return errRemap
		}

		slot.SetHalf(page.Parity(), makeEntryLo(physAddr, flags|FlagValid))
		if page == last {
			return nil
		}
	}
}
