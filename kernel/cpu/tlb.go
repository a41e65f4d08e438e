package cpu

const (
	// vpn2Shift drops the page offset and the even/odd page bit; one TLB
	// entry maps a pair of consecutive pages.
	vpn2Shift = 13

	// EntryLoGlobal is the G bit of an EntryLo value. A TLB entry whose
	// halves are both global matches every asid.
	EntryLoGlobal = uint32(1 << 0)

	defaultTLBEntries = 64
)

// TLBEntry is a single TLB slot holding the EntryLo pair for the virtual page
// pair VPN2.
type TLBEntry struct {
	VPN2 uintptr
	ASID uint8
	Lo0  uint32
	Lo1  uint32
}

func (e *TLBEntry) global() bool {
	return e.Lo0&e.Lo1&EntryLoGlobal != 0
}

func (e *TLBEntry) matches(vpn2 uintptr, asid uint8) bool {
	return e.VPN2 == vpn2 && (e.ASID == asid || e.global())
}

// TLB is a fully-associative translation cache with round-robin replacement.
type TLB struct {
	entries []TLBEntry
	valid   []bool
	next    int
}

func (t *TLB) init(size int) {
	if size <= 0 {
		size = defaultTLBEntries
	}
	t.entries = make([]TLBEntry, size)
	t.valid = make([]bool, size)
	t.next = 0
}

// write replaces the entry with the same tag or, if there is none, the next
// victim slot.
func (t *TLB) write(entry TLBEntry) {
	for i := range t.entries {
		if t.valid[i] && t.entries[i].VPN2 == entry.VPN2 && t.entries[i].ASID == entry.ASID {
			t.entries[i] = entry
			return
		}
	}

	t.entries[t.next] = entry
	t.valid[t.next] = true
	t.next = (t.next + 1) % len(t.entries)
}

func (t *TLB) probe(vpn2 uintptr, asid uint8) (TLBEntry, bool) {
	for i := range t.entries {
		if t.valid[i] && t.entries[i].matches(vpn2, asid) {
			return t.entries[i], true
		}
	}
	return TLBEntry{}, false
}

func (t *TLB) flush() {
	for i := range t.valid {
		t.valid[i] = false
	}
	t.next = 0
}
