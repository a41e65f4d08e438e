package mem

import (
	"testing"
	"unsafe"
)

func TestMemset(t *testing.T) {
	// memset with a 0 size should be a no-op
	Memset(uintptr(0), 0x00, 0)

	for pageCount := uint32(1); pageCount <= 10; pageCount++ {
		buf := make([]byte, PageSize<<pageCount)
		for i := 0; i < len(buf); i++ {
			buf[i] = 0xFE
		}

		addr := uintptr(unsafe.Pointer(&buf[0]))
		Memset(addr, 0x00, Size(len(buf)))

		for i := 0; i < len(buf); i++ {
			if got := buf[i]; got != 0x00 {
				t.Errorf("[block with %d pages] expected byte: %d to be 0x00; got 0x%x", pageCount, i, got)
			}
		}
	}
}

func TestMemcopy(t *testing.T) {
	// memcopy with a 0 size should be a no-op
	Memcopy(uintptr(0), uintptr(0), 0)

	var (
		src = make([]byte, PageSize)
		dst = make([]byte, PageSize)
	)
	for i := 0; i < len(src); i++ {
		src[i] = byte(i % 256)
	}

	Memcopy(uintptr(unsafe.Pointer(&src[0])), uintptr(unsafe.Pointer(&dst[0])), PageSize)

	for i := 0; i < len(src); i++ {
		if got := dst[i]; got != src[i] {
			t.Fatalf("expected byte: %d to be 0x%x; got 0x%x", i, src[i], got)
		}
	}
}

func TestSizePages(t *testing.T) {
	specs := []struct {
		size     Size
		expPages uint32
	}{
		{1023 * Kb, 256},
		{1024 * Kb, 256},
		{1 * Byte, 1},
		{0, 0},
	}

	for specIndex, spec := range specs {
		if got := spec.size.Pages(); got != spec.expPages {
			t.Errorf("[spec %d] expected Pages(%d bytes) to equal %d; got %d", specIndex, spec.size, spec.expPages, got)
		}
	}
}

func TestPageRounding(t *testing.T) {
	specs := []struct {
		addr    uintptr
		expDown uintptr
		expUp   uintptr
	}{
		{0, 0, 0},
		{1, 0, 4096},
		{4095, 0, 4096},
		{4096, 4096, 4096},
		{8193, 8192, 12288},
	}

	for specIndex, spec := range specs {
		if got := PageRoundDown(spec.addr); got != spec.expDown {
			t.Errorf("[spec %d] expected PageRoundDown(0x%x) to be 0x%x; got 0x%x", specIndex, spec.addr, spec.expDown, got)
		}
		if got := PageRoundUp(spec.addr); got != spec.expUp {
			t.Errorf("[spec %d] expected PageRoundUp(0x%x) to be 0x%x; got 0x%x", specIndex, spec.addr, spec.expUp, got)
		}
	}
}
