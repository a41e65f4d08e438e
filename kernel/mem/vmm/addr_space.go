package vmm

import (
	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/cpu"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/pmm"
)

var (
	// ErrSizeLimit is returned when growing an address space into the
	// kernel's part of the virtual address space.
	ErrSizeLimit = &kernel.Error{Module: "vmm", Message: "address space size exceeds user limit"}

	// ErrShrinkViaGrow is returned by Grow when the new size is smaller
	// than the current one.
	ErrShrinkViaGrow = &kernel.Error{Module: "vmm", Message: "new size is smaller than current size"}

	errSwitchNoPgdir  = &kernel.Error{Module: "vmm", Message: "switchuvm: no pgdir"}
	errInitTooLarge   = &kernel.Error{Module: "vmm", Message: "inituvm: more than a page"}
	errFreeNullFrame  = &kernel.Error{Module: "vmm", Message: "kfree: valid entry maps frame 0"}
	errFreeNoPgdir    = &kernel.Error{Module: "vmm", Message: "freevm: no pgdir"}
	errCopyNoEntry    = &kernel.Error{Module: "vmm", Message: "copyuvm: pte should exist"}
	errCopyNotPresent = &kernel.Error{Module: "vmm", Message: "copyuvm: page not present"}
)

// Process is implemented by the process structure handed to SwitchUVM.
type Process interface {
	// PageTable returns the root table of the process address space.
	PageTable() *PageTable

	// ASID returns the address-space identifier assigned to the process.
	ASID() ASID
}

// SwitchUVM makes the address space of p active on c. The TLB miss handler
// does not refill the entry for virtual address 0, so it is loaded here
// before switching. Interrupts are disabled for the whole sequence.
func SwitchUVM(c *cpu.CPU, p Process) {
	c.PushCLI()
	defer c.PopCLI()

	pt := p.PageTable()
	if pt == nil {
		panicFn(errSwitchNoPgdir)
		return
	}

	if slot, err := pt.walk(p.ASID(), 0, false, false); err == nil {
		c.TLBWrite(0, uint8(p.ASID()), uint32(slot.Half(0)), uint32(slot.Half(1)))
	}
	c.SwitchPDT(pt.root.Address())
}

// InitUVM loads the initial user program into address 0 of pt. The program
// must be smaller than a page.
func (pt *PageTable) InitUVM(asid ASID, init []byte) *kernel.Error {
	if mem.Size(len(init)) >= mem.PageSize {
		panicFn(errInitTooLarge)
		return errInitTooLarge
	}

	frame, err := allocZeroedFrame()
	if err != nil {
		return err
	}

	if err = pt.mapPages(asid, 0, uintptr(mem.PageSize), frame.Address(), FlagDirty); err != nil {
		freeFrame(frame)
		return err
	}

	copy(mem.Slice(mem.DirectMap(frame.Address()), mem.PageSize), init)
	return nil
}

// Grow allocates and maps zeroed pages to grow an address space from oldSize
// to newSize, which need not be page aligned. It returns newSize on success.
// On failure it returns 0 and releases every page mapped by this call.
func (pt *PageTable) Grow(asid ASID, oldSize, newSize uintptr) (uintptr, *kernel.Error) {
	if newSize >= mem.KernBase {
		return 0, ErrSizeLimit
	}
	if newSize < oldSize {
		return 0, ErrShrinkViaGrow
	}

	for addr := mem.PageRoundUp(oldSize); addr < newSize; addr += uintptr(mem.PageSize) {
		frame, err := allocZeroedFrame()
		if err != nil {
			log.WithField("asid", asid).Warnf("grow 0x%x -> 0x%x: out of memory", oldSize, newSize)
			pt.Shrink(newSize, oldSize)
			return 0, err
		}

		if err = pt.mapPages(asid, addr, uintptr(mem.PageSize), frame.Address(), FlagDirty); err != nil {
			freeFrame(frame)
			pt.Shrink(newSize, oldSize)
			return 0, err
		}
	}

	return newSize, nil
}

// Shrink unmaps and frees the user pages between newSize and oldSize, which
// need not be page aligned; oldSize may exceed the actual size of the
// address space. Second-level tables that only covered the released range
// are freed as well. Shrink always returns newSize.
func (pt *PageTable) Shrink(oldSize, newSize uintptr) uintptr {
	if newSize >= oldSize {
		return newSize
	}

	start := mem.PageRoundUp(newSize)
	for addr := start; addr < oldSize; addr += uintptr(mem.PageSize) {
		slot, err := pt.walk(0, addr, false, false)
		if err != nil {
			// Skip the rest of the span covered by the absent table.
			addr = addr&^(dirSpan-1) + dirSpan - uintptr(mem.PageSize)
			continue
		}

		parity := PageFromAddress(addr).Parity()
		entry := slot.Half(parity)
		if !entry.HasFlags(FlagValid) {
			continue
		}

		if entry.Address() == 0 {
			panicFn(errFreeNullFrame)
			return newSize
		}
		freeFrame(entry.Frame())
		slot.SetHalf(parity, 0)
	}

	pt.freeEmptyTables(start, oldSize)
	return newSize
}

// freeEmptyTables releases the empty second-level tables whose whole span
// lies inside [start, end).
func (pt *PageTable) freeEmptyTables(start, end uintptr) {
	dir := pt.directory()
	for base := (start + dirSpan - 1) &^ (dirSpan - 1); base < end && base+dirSpan <= mem.KernBase; base += dirSpan {
		entry := &dir[pdx(base)]
		if !entry.present() {
			continue
		}

		empty := true
		for _, slot := range tableAt(entry.tableAddr()) {
			if !slot.Empty() {
				empty = false
				break
			}
		}

		if empty {
			freeFrame(pmm.FrameFromAddress(entry.tableAddr()))
			*entry = 0
		}
	}
}

// Free releases every user page, every second-level table and finally the
// root table itself.
func (pt *PageTable) Free() {
	if pt == nil || !pt.root.Valid() {
		panicFn(errFreeNoPgdir)
		return
	}

	pt.Shrink(mem.KernBase, 0)

	dir := pt.directory()
	for i := range dir {
		if dir[i].present() {
			freeFrame(pmm.FrameFromAddress(dir[i].tableAddr()))
			dir[i] = 0
		}
	}

	freeFrame(pt.root)
	pt.root = pmm.InvalidFrame
}

// Copy creates a new page table holding the kernel mappings and a private
// copy of every user page below size, tagged with asid. Every page below
// size must be mapped. Either the whole address space is copied or nothing
// is allocated.
func (pt *PageTable) Copy(asid ASID, size uintptr) (*PageTable, *kernel.Error) {
	dst, err := SetupKVM()
	if err != nil {
		return nil, err
	}

	for addr := uintptr(0); addr < size; addr += uintptr(mem.PageSize) {
		slot, err := pt.walk(asid, addr, false, false)
		if err != nil {
			panicFn(errCopyNoEntry)
			return nil, errCopyNoEntry
		}

		entry := slot.Half(PageFromAddress(addr).Parity())
		if !entry.HasFlags(FlagValid) {
			panicFn(errCopyNotPresent)
			return nil, errCopyNotPresent
		}

		frame, err := allocFrame()
		if err != nil {
			dst.Free()
			return nil, err
		}

		mem.Memcopy(mem.DirectMap(entry.Address()), mem.DirectMap(frame.Address()), mem.PageSize)
		if err = dst.mapPages(asid, addr, uintptr(mem.PageSize), frame.Address(), entry.Flags()); err != nil {
			freeFrame(frame)
			dst.Free()
			return nil, err
		}
	}

	return dst, nil
}

// ClearPTEU makes the page at uva inaccessible to user code. The MMU has no
// per-page user bit, so the guard page below the user stack stays
// accessible; the call exists to keep the exec path portable.
func (pt *PageTable) ClearPTEU(uva uintptr) {}
