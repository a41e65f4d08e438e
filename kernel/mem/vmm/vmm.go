// Package vmm manages per-process virtual memory: it builds two-level page
// tables, maps the kernel and user address ranges onto physical frames,
// loads program segments, grows, shrinks, duplicates and destroys address
// spaces and translates user addresses for cross-address-space copies.
package vmm

import (
	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/kfmt"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/pmm"
)

var (
	allocFrameFn FrameAllocatorFn
	freeFrameFn  FrameFreeFn

	// panicFn is used by tests to intercept fatal errors.
	panicFn = kfmt.Panic

	log = kfmt.WithModule("vmm")

	// ErrInvalidMapping is returned when trying to lookup a virtual memory
	// address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	errNoFrameAllocator = &kernel.Error{Module: "vmm", Message: "no frame allocator registered"}
)

// FrameAllocatorFn is a function that can allocate physical frames. The
// contents of the returned frame are undefined.
type FrameAllocatorFn func() (pmm.Frame, *kernel.Error)

// FrameFreeFn is a function that releases a frame obtained through a
// FrameAllocatorFn.
type FrameFreeFn func(pmm.Frame) *kernel.Error

// SetFrameAllocator registers the functions used by the vmm code when
// physical frames need to be allocated or released.
func SetFrameAllocator(allocFn FrameAllocatorFn, freeFn FrameFreeFn) {
	allocFrameFn = allocFn
	freeFrameFn = freeFn
}

// allocFrame reserves a frame without clearing it.
func allocFrame() (pmm.Frame, *kernel.Error) {
	if allocFrameFn == nil {
		return pmm.InvalidFrame, errNoFrameAllocator
	}
	return allocFrameFn()
}

// allocZeroedFrame reserves a frame and clears its contents.
func allocZeroedFrame() (pmm.Frame, *kernel.Error) {
	frame, err := allocFrame()
	if err != nil {
		return pmm.InvalidFrame, err
	}

	mem.Memset(mem.DirectMap(frame.Address()), 0, mem.PageSize)
	return frame, nil
}

// freeFrame returns a frame to the allocator. The allocator refusing a frame
// means page table state is corrupt.
func freeFrame(frame pmm.Frame) {
	if err := freeFrameFn(frame); err != nil {
		panicFn(err)
	}
}
