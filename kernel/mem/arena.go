package mem

import (
	"golang.org/x/sys/unix"

	"github.com/zhaodongru/xv6-loongarch/kernel"
)

var (
	// physMem is the host mapping that backs physical addresses
	// [0, layout.PhysTop). It lives outside the Go heap so raw addresses
	// into it can be turned back into pointers.
	physMem []byte

	layout Layout

	errArenaMap = &kernel.Error{Module: "mem", Message: "unable to map physical memory arena"}
)

// Init validates l and maps a zero-filled arena for its physical memory. Any
// previously mapped arena is released first.
func Init(l Layout) *kernel.Error {
	if err := l.Validate(); err != nil {
		return err
	}

	if physMem != nil {
		unix.Munmap(physMem)
		physMem = nil
	}

	buf, err := unix.Mmap(-1, 0, int(l.PhysTop), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE)
	if err != nil {
		return errArenaMap
	}

	physMem = buf
	layout = l
	return nil
}

// CurrentLayout returns the layout passed to the last successful Init call.
func CurrentLayout() Layout {
	return layout
}

// PhysTop returns the top of physical memory.
func PhysTop() uintptr {
	return layout.PhysTop
}

// KernelEnd returns the physical address where the kernel's data begins.
func KernelEnd() uintptr {
	return layout.KernelEnd
}

// Accessible reports whether physAddr lies in RAM the kernel can reach
// through DirectMap.
func Accessible(physAddr uintptr) bool {
	return physAddr < KSeg0Limit && physAddr < uintptr(len(physMem))
}

// DirectMap returns the address through which the kernel accesses physical
// address physAddr. The caller must ensure Accessible(physAddr) holds.
func DirectMap(physAddr uintptr) uintptr {
	return uintptrOf(physMem) + physAddr
}
