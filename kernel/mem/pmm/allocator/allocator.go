// Package allocator implements the physical frame allocator that backs every
// page table and user page.
package allocator

import (
	"github.com/google/btree"

	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/kfmt"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/pmm"
	"github.com/zhaodongru/xv6-loongarch/kernel/sync"
)

const (
	freeSetDegree = 32

	// junkByte is written over freed frames so that users of stale
	// mappings or callers that forget to clear a fresh frame see garbage.
	junkByte = 0x01
)

var (
	// FrameAllocator is the system-wide allocator instance set up by Init.
	FrameAllocator Allocator

	// ErrOutOfMemory is returned by AllocFrame when no frame is free.
	ErrOutOfMemory = &kernel.Error{Module: "kalloc", Message: "out of memory"}

	errFreeRange    = &kernel.Error{Module: "kalloc", Message: "kfree: frame outside managed memory"}
	errDoubleFree   = &kernel.Error{Module: "kalloc", Message: "kfree: frame already free"}
	errInvalidRange = &kernel.Error{Module: "kalloc", Message: "memory range contains no whole frames"}
)

// Allocator hands out page frames from a contiguous physical range. Free
// frames are kept in an ordered set so allocations always return the lowest
// free frame. Frames are not cleared on allocation.
type Allocator struct {
	lock sync.Spinlock

	free *btree.BTreeG[pmm.Frame]

	// startFrame and endFrame delimit the managed range [startFrame, endFrame).
	startFrame pmm.Frame
	endFrame   pmm.Frame
}

func frameLess(a, b pmm.Frame) bool {
	return a < b
}

// Init makes every whole frame in the physical range [start, end) available
// for allocation and fills it with junk.
func (alloc *Allocator) Init(start, end uintptr) *kernel.Error {
	startFrame := pmm.FrameFromAddress(mem.PageRoundUp(start))
	endFrame := pmm.FrameFromAddress(mem.PageRoundDown(end))
	if endFrame <= startFrame {
		return errInvalidRange
	}

	alloc.lock.Acquire()
	defer alloc.lock.Release()

	alloc.startFrame, alloc.endFrame = startFrame, endFrame
	alloc.free = btree.NewG[pmm.Frame](freeSetDegree, frameLess)
	for frame := startFrame; frame < endFrame; frame++ {
		mem.Memset(mem.DirectMap(frame.Address()), junkByte, mem.PageSize)
		alloc.free.ReplaceOrInsert(frame)
	}

	kfmt.WithModule("kalloc").WithField("frames", endFrame-startFrame).
		Debugf("managing physical memory [0x%x, 0x%x)", startFrame.Address(), endFrame.Address())
	return nil
}

// AllocFrame reserves the lowest free frame. The frame contents are
// undefined.
func (alloc *Allocator) AllocFrame() (pmm.Frame, *kernel.Error) {
	alloc.lock.Acquire()
	defer alloc.lock.Release()

	frame, ok := alloc.free.DeleteMin()
	if !ok {
		return pmm.InvalidFrame, ErrOutOfMemory
	}
	return frame, nil
}

// FreeFrame returns a frame previously obtained via AllocFrame to the pool.
func (alloc *Allocator) FreeFrame(frame pmm.Frame) *kernel.Error {
	if frame < alloc.startFrame || frame >= alloc.endFrame {
		return errFreeRange
	}

	alloc.lock.Acquire()
	defer alloc.lock.Release()

	if alloc.free.Has(frame) {
		return errDoubleFree
	}

	mem.Memset(mem.DirectMap(frame.Address()), junkByte, mem.PageSize)
	alloc.free.ReplaceOrInsert(frame)
	return nil
}

// FreeCount returns the number of frames available for allocation.
func (alloc *Allocator) FreeCount() int {
	alloc.lock.Acquire()
	defer alloc.lock.Release()

	return alloc.free.Len()
}

// TotalCount returns the number of frames managed by the allocator.
func (alloc *Allocator) TotalCount() int {
	return int(alloc.endFrame - alloc.startFrame)
}

// Init sets up FrameAllocator to manage the free physical memory described
// by the active memory layout, i.e. everything between the end of the kernel
// image and the top of physical memory.
func Init() *kernel.Error {
	l := mem.CurrentLayout()
	return FrameAllocator.Init(l.KernelEnd, l.PhysTop)
}

// AllocFrame reserves a frame from FrameAllocator.
func AllocFrame() (pmm.Frame, *kernel.Error) {
	return FrameAllocator.AllocFrame()
}

// FreeFrame releases a frame to FrameAllocator.
func FreeFrame(frame pmm.Frame) *kernel.Error {
	return FrameAllocator.FreeFrame(frame)
}
