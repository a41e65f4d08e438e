package vmm

import (
	"unsafe"

	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/pmm"
)

const (
	// dirShift is the shift of the page directory index in a virtual
	// address; every directory entry covers 4M.
	dirShift   = 22
	dirEntries = 1 << 10
	dirSpan    = uintptr(1) << dirShift

	// slotShift is the shift of the second-level table index; every slot
	// covers an even/odd pair of pages.
	slotShift     = mem.PageShift + 1
	slotsPerTable = 1 << (dirShift - slotShift)
	asidMask      = uintptr(0xff)
	tableAddrMask = ^uintptr(mem.PageSize - 1)
)

// ASID is an address-space identifier. TLB entries and page directory
// entries are tagged with it so translations of different address spaces
// can coexist in the TLB.
type ASID uint8

// pde is a page directory entry: the physical address of a second-level
// table with the asid of its creator stored in the low bits. A zero entry is
// absent.
type pde uint32

func makePDE(tableAddr uintptr, asid ASID) pde {
	return pde(tableAddr&tableAddrMask | uintptr(asid))
}

func (e pde) present() bool {
	return e != 0
}

func (e pde) tableAddr() uintptr {
	return uintptr(e) & tableAddrMask
}

func (e pde) asid() ASID {
	return ASID(uintptr(e) & asidMask)
}

// matches reports whether the table linked by e may be used by asid to
// reach a page whose current entry is half. Global entries match any asid.
func (e pde) matches(asid ASID, half entryLo) bool {
	return e.asid() == asid || half.HasFlags(FlagGlobal)
}

type directory [dirEntries]pde

type slotTable [slotsPerTable]Slot

func pdx(virtAddr uintptr) uintptr {
	return (virtAddr >> dirShift) & (dirEntries - 1)
}

func ptx(virtAddr uintptr) uintptr {
	return (virtAddr >> slotShift) & (slotsPerTable - 1)
}

func tableAt(physAddr uintptr) *slotTable {
	return (*slotTable)(unsafe.Pointer(mem.DirectMap(physAddr)))
}

// PageTable is the root of a two-level page table tree. It owns the root
// frame, every second-level table linked from it and every user frame mapped
// through it.
type PageTable struct {
	root pmm.Frame
}

// newPageTable allocates a zeroed root table.
func newPageTable() (*PageTable, *kernel.Error) {
	frame, err := allocZeroedFrame()
	if err != nil {
		return nil, err
	}
	return &PageTable{root: frame}, nil
}

// Root returns the frame holding the page directory.
func (pt *PageTable) Root() pmm.Frame {
	return pt.root
}

func (pt *PageTable) directory() *directory {
	return (*directory)(unsafe.Pointer(mem.DirectMap(pt.root.Address())))
}

// Mapping describes a single valid page mapping.
type Mapping struct {
	Virt  uintptr
	Phys  uintptr
	Flags PageTableEntryFlag
	ASID  ASID
}

// Visit calls fn for every valid mapping in ascending virtual address order
// until fn returns false.
func (pt *PageTable) Visit(fn func(Mapping) bool) {
	dir := pt.directory()
	for dirIndex, entry := range dir {
		if !entry.present() {
			continue
		}

		table := tableAt(entry.tableAddr())
		for slotIndex, slot := range table {
			for parity := uint(0); parity < 2; parity++ {
				half := slot.Half(parity)
				if !half.HasFlags(FlagValid) {
					continue
				}

				m := Mapping{
					Virt:  uintptr(dirIndex)<<dirShift | uintptr(slotIndex)<<slotShift | uintptr(parity)<<mem.PageShift,
					Phys:  half.Address(),
					Flags: half.Flags(),
					ASID:  entry.asid(),
				}
				if !fn(m) {
					return
				}
			}
		}
	}
}
