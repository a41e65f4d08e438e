package vmm

import (
	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/cpu"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
)

var (
	// physTopFn is used by tests to override the reported top of physical
	// memory.
	physTopFn = mem.PhysTop

	// kernelPageTable is the kernel-only table used when a CPU is not
	// running any process.
	kernelPageTable *PageTable

	errPhysTopTooHigh = &kernel.Error{Module: "vmm", Message: "PHYSTOP too high"}
	errNoKernelTable  = &kernel.Error{Module: "vmm", Message: "switchkvm: no kernel page table"}
)

// KernelMapRegion describes a range of physical memory that is mapped at the
// same virtual address in every address space.
type KernelMapRegion struct {
	Virt      uintptr
	PhysStart uintptr
	PhysEnd   uintptr
	Flags     PageTableEntryFlag
}

// KernelMap returns the kernel mappings present in every page table:
//
//	KernBase..KernLink:            I/O space
//	KernLink..P2V(KernelEnd):      kernel text and read-only data
//	P2V(KernelEnd)..P2V(PhysTop):  kernel data and free physical memory
//	DevSpace..4G:                  devices, mapped 1:1
func KernelMap() []KernelMapRegion {
	l := mem.CurrentLayout()
	return []KernelMapRegion{
		{mem.KernBase, 0, mem.ExtMem, FlagGlobal | FlagDirty},
		{mem.KernLink, mem.V2P(mem.KernLink), l.KernelEnd, 0},
		{mem.P2V(l.KernelEnd), l.KernelEnd, l.PhysTop, FlagGlobal | FlagDirty},
		{mem.DevSpace, mem.DevSpace, mem.DevSpaceEnd, FlagGlobal | FlagDirty},
	}
}

// SetupKVM allocates a page table that contains the kernel mappings and no
// user mappings.
func SetupKVM() (*PageTable, *kernel.Error) {
	if mem.P2V(physTopFn()) > mem.DevSpace {
		panicFn(errPhysTopTooHigh)
		return nil, errPhysTopTooHigh
	}

	pt, err := newPageTable()
	if err != nil {
		return nil, err
	}

	for _, region := range KernelMap() {
		if err = pt.mapPages(0, region.Virt, region.PhysEnd-region.PhysStart, region.PhysStart, region.Flags); err != nil {
			pt.Free()
			return nil, err
		}
	}

	return pt, nil
}

// KVMAlloc builds the kernel-only page table and activates it on c. It must
// be called once during boot.
func KVMAlloc(c *cpu.CPU) *kernel.Error {
	pt, err := SetupKVM()
	if err != nil {
		return err
	}

	kernelPageTable = pt
	SwitchKVM(c)
	return nil
}

// KernelPageTable returns the table built by KVMAlloc.
func KernelPageTable() *PageTable {
	return kernelPageTable
}

// SwitchKVM activates the kernel-only page table on c, for when no process
// is running.
func SwitchKVM(c *cpu.CPU) {
	if kernelPageTable == nil {
		panicFn(errNoKernelTable)
		return
	}
	c.SwitchPDT(kernelPageTable.root.Address())
}
