package vmm

import (
	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
)

// ErrNotDirectMapped is returned when a user page is backed by physical
// memory the kernel cannot reach through its direct-mapped window.
var ErrNotDirectMapped = &kernel.Error{Module: "vmm", Message: "page is not backed by directly mapped memory"}

// UVA2KA returns the kernel address that backs the user virtual address uva
// in pt. It works for any page table, not just the active one.
func (pt *PageTable) UVA2KA(uva uintptr) (uintptr, *kernel.Error) {
	if uva >= mem.KernBase {
		return 0, ErrInvalidMapping
	}

	page := PageFromAddress(uva)
	slot, err := pt.walk(0, page.Address(), false, false)
	if err != nil {
		return 0, err
	}

	entry := slot.Half(page.Parity())
	if !entry.HasFlags(FlagValid) {
		return 0, ErrInvalidMapping
	}

	physAddr := entry.Address()
	if !mem.Accessible(physAddr) {
		return 0, ErrNotDirectMapped
	}

	return mem.DirectMap(physAddr) + (uva - page.Address()), nil
}

// CopyOut copies data to the user address va in pt. Each destination page is
// translated separately, so pt does not need to be active. If a page cannot
// be translated CopyOut fails after copying the data that precedes it.
func (pt *PageTable) CopyOut(va uintptr, data []byte) *kernel.Error {
	for len(data) > 0 {
		n, err := pt.copyPage(va, len(data), func(kernBuf []byte) {
			copy(kernBuf, data)
		})
		if err != nil {
			return err
		}

		data = data[n:]
		va += uintptr(n)
	}

	return nil
}

// CopyIn copies len(buf) bytes from the user address va in pt into buf.
func (pt *PageTable) CopyIn(buf []byte, va uintptr) *kernel.Error {
	for len(buf) > 0 {
		n, err := pt.copyPage(va, len(buf), func(kernBuf []byte) {
			copy(buf, kernBuf)
		})
		if err != nil {
			return err
		}

		buf = buf[n:]
		va += uintptr(n)
	}

	return nil
}

// copyPage translates va and passes fn the kernel view of the bytes between
// va and the end of its page, capped at limit. It returns the view's length.
func (pt *PageTable) copyPage(va uintptr, limit int, fn func([]byte)) (int, *kernel.Error) {
	kernAddr, err := pt.UVA2KA(va)
	if err != nil {
		return 0, err
	}

	n := int(uintptr(mem.PageSize) - (va - mem.PageRoundDown(va)))
	if n > limit {
		n = limit
	}

	fn(mem.Slice(kernAddr, mem.Size(n)))
	return n, nil
}
