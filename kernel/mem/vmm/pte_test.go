package vmm

import (
	"testing"

	"github.com/zhaodongru/xv6-loongarch/kernel/mem/pmm"
)

func TestEntryLoEncoding(t *testing.T) {
	specs := []struct {
		physAddr uintptr
		flags    PageTableEntryFlag
	}{
		{0x0, 0},
		{0x1000, FlagValid},
		{0x00abc000, FlagValid | FlagDirty},
		{0xfe000000, FlagValid | FlagDirty | FlagGlobal | FlagUncached},
	}

	for specIndex, spec := range specs {
		e := makeEntryLo(spec.physAddr, spec.flags)

		if got := e.Address(); got != spec.physAddr {
			t.Errorf("[spec %d] expected address 0x%x; got 0x%x", specIndex, spec.physAddr, got)
		}

		if got := e.Flags(); got != spec.flags {
			t.Errorf("[spec %d] expected flags 0x%x; got 0x%x", specIndex, spec.flags, got)
		}

		if !e.HasFlags(spec.flags) {
			t.Errorf("[spec %d] expected HasFlags to return true", specIndex)
		}

		if exp, got := pmm.FrameFromAddress(spec.physAddr), e.Frame(); got != exp {
			t.Errorf("[spec %d] expected frame %d; got %d", specIndex, exp, got)
		}
	}

	// The frame number sits at bit 6, matching elo = pa >> 6 | perm.
	if exp, got := entryLo(0x1000>>6|uint32(FlagValid)), makeEntryLo(0x1000, FlagValid); got != exp {
		t.Fatalf("expected raw entry 0x%x; got 0x%x", exp, got)
	}
}

func TestSlotPreservesSibling(t *testing.T) {
	var (
		slot Slot
		even = makeEntryLo(0x5000, FlagValid|FlagDirty)
		odd  = makeEntryLo(0x9000, FlagValid)
	)

	slot.SetHalf(0, even)
	if slot.Half(1) != 0 {
		t.Fatal("expected setting the even half to leave the odd half clear")
	}

	slot.SetHalf(1, odd)
	if got := slot.Half(0); got != even {
		t.Fatalf("expected even half to be preserved as 0x%x; got 0x%x", even, got)
	}
	if got := slot.Half(1); got != odd {
		t.Fatalf("expected odd half to be 0x%x; got 0x%x", odd, got)
	}

	slot.SetHalf(0, 0)
	if got := slot.Half(1); got != odd {
		t.Fatalf("expected clearing the even half to preserve the odd half; got 0x%x", got)
	}

	if slot.Empty() {
		t.Fatal("expected slot with a valid odd half to be non-empty")
	}

	slot.SetHalf(1, 0)
	if !slot.Empty() {
		t.Fatal("expected slot to be empty after clearing both halves")
	}
}
