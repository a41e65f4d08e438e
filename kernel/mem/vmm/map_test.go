package vmm

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
)

func TestMapPages(t *testing.T) {
	specs := []struct {
		name     string
		virtAddr uintptr
		size     uintptr
		physAddr uintptr
		exp      []Mapping
	}{
		{
			name: "zero size",
			size: 0,
		},
		{
			name:     "single byte",
			virtAddr: 0x1234,
			size:     1,
			physAddr: 0x300000,
			exp: []Mapping{
				{Virt: 0x1000, Phys: 0x300000, Flags: FlagValid | FlagDirty, ASID: 1},
			},
		},
		{
			name:     "unaligned range spanning pages",
			virtAddr: 0x1ff0,
			size:     0x20,
			physAddr: 0x300000,
			exp: []Mapping{
				{Virt: 0x1000, Phys: 0x300000, Flags: FlagValid | FlagDirty, ASID: 1},
				{Virt: 0x2000, Phys: 0x301000, Flags: FlagValid | FlagDirty, ASID: 1},
			},
		},
		{
			name:     "range crossing a directory boundary",
			virtAddr: 0x3ff000,
			size:     0x2000,
			physAddr: 0x300000,
			exp: []Mapping{
				{Virt: 0x3ff000, Phys: 0x300000, Flags: FlagValid | FlagDirty, ASID: 1},
				{Virt: 0x400000, Phys: 0x301000, Flags: FlagValid | FlagDirty, ASID: 1},
			},
		},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			pt, err := newPageTable()
			if err != nil {
				t.Fatal(err)
			}
			defer freeUnowned(pt)

			if err = pt.mapPages(1, spec.virtAddr, spec.size, spec.physAddr, FlagDirty); err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(spec.exp, userMappings(pt)); diff != "" {
				t.Fatalf("unexpected mappings (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMapPagesPreservesSibling(t *testing.T) {
	pt, err := newPageTable()
	if err != nil {
		t.Fatal(err)
	}
	defer freeUnowned(pt)

	if err = pt.mapPages(1, 0x1000, uintptr(mem.PageSize), 0x301000, FlagDirty); err != nil {
		t.Fatal(err)
	}
	if err = pt.mapPages(1, 0, uintptr(mem.PageSize), 0x300000, 0); err != nil {
		t.Fatal(err)
	}

	slot, err := pt.walk(1, 0, false, true)
	if err != nil {
		t.Fatal(err)
	}

	if got, exp := slot.Half(0), makeEntryLo(0x300000, FlagValid); got != exp {
		t.Errorf("expected even half to be 0x%x; got 0x%x", exp, got)
	}
	if got, exp := slot.Half(1), makeEntryLo(0x301000, FlagValid|FlagDirty); got != exp {
		t.Errorf("expected odd half to be 0x%x; got 0x%x", exp, got)
	}
}

func TestMapPagesRemap(t *testing.T) {
	pt, err := newPageTable()
	if err != nil {
		t.Fatal(err)
	}
	defer freeUnowned(pt)

	if err = pt.mapPages(1, 0x2000, uintptr(mem.PageSize), 0x300000, FlagDirty); err != nil {
		t.Fatal(err)
	}

	expectPanic(t, errRemap, func() {
		_ = pt.mapPages(1, 0x1000, 2*uintptr(mem.PageSize), 0x310000, FlagDirty)
	})
}

func TestMapPagesAllocFailure(t *testing.T) {
	pt, err := newPageTable()
	if err != nil {
		t.Fatal(err)
	}
	defer freeUnowned(pt)

	// Only the table for the first directory can be allocated; the pages
	// mapped before the failure stay in place.
	withAllocator(failingAllocator(1), func() {
		if err := pt.mapPages(1, 0x3ff000, 0x2000, 0x300000, FlagDirty); err != errTestOutOfMemory {
			t.Fatalf("expected allocator error; got %v", err)
		}
	})

	exp := []Mapping{{Virt: 0x3ff000, Phys: 0x300000, Flags: FlagValid | FlagDirty, ASID: 1}}
	if diff := cmp.Diff(exp, userMappings(pt)); diff != "" {
		t.Fatalf("unexpected mappings (-want +got):\n%s", diff)
	}
}
