package vmm

import (
	"io"

	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
)

var (
	// ErrShortRead is returned by LoadSegment when the segment source
	// yields fewer bytes than requested.
	ErrShortRead = &kernel.Error{Module: "vmm", Message: "segment source returned fewer bytes than requested"}

	errLoadUnaligned = &kernel.Error{Module: "vmm", Message: "loaduvm: addr must be page aligned"}
	errLoadNoMapping = &kernel.Error{Module: "vmm", Message: "loaduvm: address should exist"}
)

// LoadSegment copies size bytes starting at offset of src into the already
// mapped pages starting at the page-aligned address addr. Pages loaded
// before a short read keep their contents.
func (pt *PageTable) LoadSegment(addr uintptr, src io.ReaderAt, offset, size uintptr) *kernel.Error {
	if addr%uintptr(mem.PageSize) != 0 {
		panicFn(errLoadUnaligned)
		return errLoadUnaligned
	}

	for i := uintptr(0); i < size; i += uintptr(mem.PageSize) {
		page := PageFromAddress(addr + i)
		slot, err := pt.walk(0, page.Address(), false, false)
		if err != nil || !slot.Half(page.Parity()).HasFlags(FlagValid) {
			panicFn(errLoadNoMapping)
			return errLoadNoMapping
		}

		n := uintptr(mem.PageSize)
		if size-i < n {
			n = size - i
		}

		dst := mem.Slice(mem.DirectMap(slot.Half(page.Parity()).Address()), mem.Size(n))
		if read, _ := src.ReadAt(dst, int64(offset+i)); uintptr(read) != n {
			return ErrShortRead
		}
	}

	return nil
}
