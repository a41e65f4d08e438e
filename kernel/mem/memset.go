package mem

import "unsafe"

// Slice overlays a byte slice of the given size on top of the memory region
// starting at addr.
func Slice(addr uintptr, size Size) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
}

// Memset sets size bytes at the given address to the supplied value. Instead
// of a byte loop it makes log2(size) copy calls which is fast for the
// page-aligned regions it is used on.
func Memset(addr uintptr, value byte, size Size) {
	if size == 0 {
		return
	}

	target := Slice(addr, size)

	// Set first element and make log2(size) optimized copies
	target[0] = value
	for index := Size(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Memcopy copies size bytes from src to dst.
func Memcopy(src, dst uintptr, size Size) {
	if size == 0 {
		return
	}

	copy(Slice(dst, size), Slice(src, size))
}

func uintptrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
