package mem

import "github.com/zhaodongru/xv6-loongarch/kernel"

// Virtual and physical address-space layout.
//
//	0..KernBase:              user memory
//	KernBase..KernLink:       mapped to 0..ExtMem (I/O space)
//	KernLink..P2V(KernelEnd): kernel text and read-only data
//	P2V(KernelEnd)..P2V(PhysTop): kernel data and free physical memory
//	DevSpace..DevSpaceEnd:    mapped direct (devices)
const (
	// ExtMem is the start of extended memory.
	ExtMem = uintptr(0x100000)

	// KernBase is the first kernel virtual address and the upper bound
	// of every process address space.
	KernBase = uintptr(0x80000000)

	// KernLink is the address the kernel image is linked at.
	KernLink = KernBase + ExtMem

	// DevSpace is the start of the device window mapped 1:1 into every
	// address space.
	DevSpace = uintptr(0xFE000000)

	// DevSpaceEnd is the end of the 32-bit virtual address space.
	DevSpaceEnd = uintptr(1 << 32)

	// KSeg0Limit bounds the physical addresses the kernel can reach through
	// its direct-mapped window.
	KSeg0Limit = uintptr(0x80000000)
)

var (
	// DefaultLayout describes a machine with 16M of RAM and a 1M kernel
	// image loaded at ExtMem.
	DefaultLayout = Layout{
		PhysTop:   uintptr(16 * Mb),
		KernelEnd: ExtMem + uintptr(1*Mb),
	}

	errLayoutUnaligned = &kernel.Error{Module: "mem", Message: "layout addresses must be page-aligned"}
	errLayoutKernelEnd = &kernel.Error{Module: "mem", Message: "kernel image must end between ExtMem and PhysTop"}
	errLayoutPhysTop   = &kernel.Error{Module: "mem", Message: "physical memory exceeds the direct-mapped window"}
)

// Layout holds the boot-time parameters of the physical memory map.
type Layout struct {
	// PhysTop is the top of physical memory (exclusive).
	PhysTop uintptr

	// KernelEnd is the physical address where the kernel's writable data
	// begins; everything in [ExtMem, KernelEnd) is text and read-only data.
	KernelEnd uintptr
}

// Validate checks the layout for alignment and ordering constraints.
func (l Layout) Validate() *kernel.Error {
	pageMask := uintptr(PageSize - 1)
	switch {
	case l.PhysTop&pageMask != 0, l.KernelEnd&pageMask != 0:
		return errLayoutUnaligned
	case l.KernelEnd <= ExtMem, l.KernelEnd >= l.PhysTop:
		return errLayoutKernelEnd
	case l.PhysTop > KSeg0Limit:
		return errLayoutPhysTop
	}
	return nil
}

// P2V converts a physical address into its kernel virtual address.
func P2V(physAddr uintptr) uintptr {
	return physAddr + KernBase
}

// V2P converts a kernel virtual address into its physical address.
func V2P(virtAddr uintptr) uintptr {
	return virtAddr - KernBase
}
