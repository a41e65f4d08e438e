package vmm

import "github.com/zhaodongru/xv6-loongarch/kernel"

// walk returns the slot in pt that holds the entry for virtAddr.
//
// If the directory entry for virtAddr is absent, or checkASID is set and the
// entry was created for a different asid, walk either fails with
// ErrInvalidMapping or, when alloc is set, links a freshly cleared table
// tagged with asid in its place. A table replaced this way is dropped, not
// freed: asids are only reused once their previous owner is gone.
func (pt *PageTable) walk(asid ASID, virtAddr uintptr, alloc, checkASID bool) (*Slot, *kernel.Error) {
	entry := &pt.directory()[pdx(virtAddr)]
	if entry.present() {
		slot := &tableAt(entry.tableAddr())[ptx(virtAddr)]
		if !checkASID || entry.matches(asid, slot.Half(PageFromAddress(virtAddr).Parity())) {
			return slot, nil
		}

		log.WithField("asid", asid).Debugf("evicting table 0x%x of asid %d for 0x%x", entry.tableAddr(), entry.asid(), virtAddr)
	}

	if !alloc {
		return nil, ErrInvalidMapping
	}

	// The table must be fully cleared before it is linked; stale bits
	// would read as valid entries.
	frame, err := allocZeroedFrame()
	if err != nil {
		return nil, err
	}

	*entry = makePDE(frame.Address(), asid)
	return &tableAt(frame.Address())[ptx(virtAddr)], nil
}
