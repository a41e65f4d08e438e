package vmm

import (
	"github.com/zhaodongru/xv6-loongarch/kernel/cpu"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/pmm"
)

// PageTableEntryFlag describes a flag that can be applied to a page table
// entry. The values match the low bits of the hardware EntryLo registers.
type PageTableEntryFlag uint32

const (
	// FlagGlobal marks a mapping that is shared by every address space;
	// the TLB ignores the asid when matching it.
	FlagGlobal = PageTableEntryFlag(cpu.EntryLoGlobal)

	// FlagValid is set when the entry maps a frame.
	FlagValid = PageTableEntryFlag(1 << 1)

	// FlagDirty allows writes to the page.
	FlagDirty = PageTableEntryFlag(1 << 2)

	// FlagUncached selects the uncached memory attribute.
	FlagUncached = PageTableEntryFlag(2 << 3)

	flagsMask = PageTableEntryFlag(1<<pfnShift - 1)

	// pfnShift is the position of the frame number inside an entry,
	// expressed as a right shift of the physical address.
	pfnShift = 6
)

// entryLo is the hardware encoding of a single page mapping: a frame number
// and a set of flags.
type entryLo uint32

func makeEntryLo(physAddr uintptr, flags PageTableEntryFlag) entryLo {
	return entryLo(physAddr>>pfnShift)&^entryLo(flagsMask) | entryLo(flags&flagsMask)
}

// HasFlags returns true if this entry has all the input flags set.
func (e entryLo) HasFlags(flags PageTableEntryFlag) bool {
	return PageTableEntryFlag(e)&flags == flags
}

// Flags returns the flag bits of the entry.
func (e entryLo) Flags() PageTableEntryFlag {
	return PageTableEntryFlag(e) & flagsMask
}

// Address returns the physical address of the frame the entry points to.
func (e entryLo) Address() uintptr {
	return uintptr(e>>pfnShift) << mem.PageShift
}

// Frame returns the physical frame the entry points to.
func (e entryLo) Frame() pmm.Frame {
	return pmm.FrameFromAddress(e.Address())
}

// Slot is a second-level page table entry. The hardware loads TLB entries
// for pairs of consecutive pages, so each slot packs the entry of an even
// page in its low word and that of the following odd page in its high word.
type Slot uint64

// Half returns the entry selected by parity.
func (s Slot) Half(parity uint) entryLo {
	return entryLo(s >> (32 * (parity & 1)))
}

// SetHalf replaces the entry selected by parity. The other half is left
// untouched.
func (s *Slot) SetHalf(parity uint, e entryLo) {
	shift := 32 * (parity & 1)
	*s = *s&^(Slot(0xffffffff)<<shift) | Slot(e)<<shift
}

// Empty returns true if neither half maps a page.
func (s Slot) Empty() bool {
	return s == 0
}
