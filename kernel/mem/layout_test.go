package mem

import (
	"testing"

	"github.com/zhaodongru/xv6-loongarch/kernel"
)

func TestLayoutValidate(t *testing.T) {
	specs := []struct {
		layout Layout
		expErr *kernel.Error
	}{
		{DefaultLayout, nil},
		{Layout{PhysTop: uintptr(16*Mb) + 1, KernelEnd: 2 * ExtMem}, errLayoutUnaligned},
		{Layout{PhysTop: uintptr(16 * Mb), KernelEnd: ExtMem}, errLayoutKernelEnd},
		{Layout{PhysTop: uintptr(16 * Mb), KernelEnd: uintptr(16 * Mb)}, errLayoutKernelEnd},
		{Layout{PhysTop: KSeg0Limit + uintptr(PageSize), KernelEnd: 2 * ExtMem}, errLayoutPhysTop},
	}

	for specIndex, spec := range specs {
		if err := spec.layout.Validate(); err != spec.expErr {
			t.Errorf("[spec %d] expected to get error %v; got %v", specIndex, spec.expErr, err)
		}
	}
}

func TestP2V(t *testing.T) {
	if got := P2V(0x1234); got != KernBase+0x1234 {
		t.Fatalf("expected P2V(0x1234) to be 0x%x; got 0x%x", KernBase+0x1234, got)
	}

	if got := V2P(KernLink); got != ExtMem {
		t.Fatalf("expected V2P(KernLink) to be 0x%x; got 0x%x", ExtMem, got)
	}
}
