package allocator

import (
	"os"
	"sync"
	"testing"

	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/pmm"
)

var testLayout = mem.Layout{PhysTop: uintptr(2 * mem.Mb), KernelEnd: mem.ExtMem + uintptr(512*mem.Kb)}

func TestMain(m *testing.M) {
	if err := mem.Init(testLayout); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestAllocatorInit(t *testing.T) {
	var alloc Allocator

	if err := alloc.Init(testLayout.PhysTop, testLayout.PhysTop); err != errInvalidRange {
		t.Fatalf("expected errInvalidRange; got %v", err)
	}

	// Unaligned bounds are shrunk to whole frames.
	if err := alloc.Init(testLayout.KernelEnd+1, testLayout.KernelEnd+3*uintptr(mem.PageSize)+5); err != nil {
		t.Fatal(err)
	}

	if exp, got := 2, alloc.TotalCount(); got != exp {
		t.Fatalf("expected allocator to manage %d frames; got %d", exp, got)
	}

	if exp, got := 2, alloc.FreeCount(); got != exp {
		t.Fatalf("expected %d free frames; got %d", exp, got)
	}
}

func TestAllocFreeFrame(t *testing.T) {
	var alloc Allocator
	if err := alloc.Init(testLayout.KernelEnd, testLayout.KernelEnd+4*uintptr(mem.PageSize)); err != nil {
		t.Fatal(err)
	}

	firstFrame := pmm.FrameFromAddress(testLayout.KernelEnd)
	var frames []pmm.Frame
	for i := 0; i < 4; i++ {
		frame, err := alloc.AllocFrame()
		if err != nil {
			t.Fatal(err)
		}

		if exp := firstFrame + pmm.Frame(i); frame != exp {
			t.Errorf("expected allocation %d to return frame %d; got %d", i, exp, frame)
		}
		frames = append(frames, frame)
	}

	if frame, err := alloc.AllocFrame(); err != ErrOutOfMemory || frame.Valid() {
		t.Fatalf("expected ErrOutOfMemory and an invalid frame; got %v, %d", err, frame)
	}

	if err := alloc.FreeFrame(frames[2]); err != nil {
		t.Fatal(err)
	}

	page := mem.Slice(mem.DirectMap(frames[2].Address()), mem.PageSize)
	for i, b := range page {
		if b != junkByte {
			t.Fatalf("expected freed frame byte %d to be filled with junk; got 0x%x", i, b)
		}
	}

	if err := alloc.FreeFrame(frames[2]); err != errDoubleFree {
		t.Fatalf("expected errDoubleFree; got %v", err)
	}

	if err := alloc.FreeFrame(firstFrame - 1); err != errFreeRange {
		t.Fatalf("expected errFreeRange; got %v", err)
	}

	// The freed frame is handed out again.
	if frame, err := alloc.AllocFrame(); err != nil || frame != frames[2] {
		t.Fatalf("expected to re-allocate frame %d; got %d, %v", frames[2], frame, err)
	}
}

func TestAllocatorConcurrentUse(t *testing.T) {
	var alloc Allocator
	if err := alloc.Init(testLayout.KernelEnd, testLayout.PhysTop); err != nil {
		t.Fatal(err)
	}

	var (
		wg         sync.WaitGroup
		numWorkers = 8
		total      = alloc.FreeCount()
	)

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 16; j++ {
				frame, err := alloc.AllocFrame()
				if err != nil {
					t.Error(err)
					return
				}
				if err = alloc.FreeFrame(frame); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := alloc.FreeCount(); got != total {
		t.Fatalf("expected %d free frames after balanced alloc/free; got %d", total, got)
	}
}

func TestGlobalAllocator(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	exp := int((testLayout.PhysTop - testLayout.KernelEnd) >> mem.PageShift)
	if got := FrameAllocator.FreeCount(); got != exp {
		t.Fatalf("expected %d free frames; got %d", exp, got)
	}

	frame, err := AllocFrame()
	if err != nil {
		t.Fatal(err)
	}
	if err = FreeFrame(frame); err != nil {
		t.Fatal(err)
	}
}
