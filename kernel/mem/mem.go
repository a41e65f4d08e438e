// Package mem describes the machine's memory: page geometry, the fixed
// address-space layout shared by every page table and the physical memory
// arena backing all page frames.
package mem

const (
	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right by PageShift)
	// and vice-versa.
	PageShift = 12

	// PageSize defines the system's page size in bytes.
	PageSize = Size(1 << PageShift)
)

// PageRoundUp rounds addr up to the next page boundary.
func PageRoundUp(addr uintptr) uintptr {
	return (addr + uintptr(PageSize-1)) &^ uintptr(PageSize-1)
}

// PageRoundDown rounds addr down to the page that contains it.
func PageRoundDown(addr uintptr) uintptr {
	return addr &^ uintptr(PageSize-1)
}
