package proc

import (
	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/vmm"
	"github.com/zhaodongru/xv6-loongarch/kernel/sync"
)

const (
	// asid 0 tags the kernel mappings and is never handed to a process.
	firstASID = vmm.ASID(1)
	lastASID  = vmm.ASID(255)
)

var (
	// ErrNoASID is returned when every address-space identifier is held by
	// a live process.
	ErrNoASID = &kernel.Error{Module: "proc", Message: "out of address-space identifiers"}

	errASIDNotInUse = &kernel.Error{Module: "proc", Message: "releasing an unused asid"}

	ids idPool
)

// idPool hands out process ids and asids. Asids are allocated round-robin
// so a released identifier is reused as late as possible.
type idPool struct {
	lock sync.Spinlock

	nextPID  int
	nextASID vmm.ASID
	inUse    [int(lastASID) + 1]bool
}

func (pool *idPool) alloc() (int, vmm.ASID, *kernel.Error) {
	pool.lock.Acquire()
	defer pool.lock.Release()

	if pool.nextASID < firstASID {
		pool.nextASID = firstASID
	}

	start := pool.nextASID
	asid := start
	for pool.inUse[asid] {
		if asid = pool.next(asid); asid == start {
			return 0, 0, ErrNoASID
		}
	}

	pool.inUse[asid] = true
	pool.nextASID = pool.next(asid)
	pool.nextPID++
	return pool.nextPID, asid, nil
}

func (pool *idPool) next(asid vmm.ASID) vmm.ASID {
	if asid == lastASID {
		return firstASID
	}
	return asid + 1
}

func (pool *idPool) release(asid vmm.ASID) *kernel.Error {
	pool.lock.Acquire()
	defer pool.lock.Release()

	if asid < firstASID || !pool.inUse[asid] {
		return errASIDNotInUse
	}
	pool.inUse[asid] = false
	return nil
}

// inUseCount returns the number of asids held by live processes.
func (pool *idPool) inUseCount() int {
	pool.lock.Acquire()
	defer pool.lock.Release()

	var n int
	for _, used := range pool.inUse {
		if used {
			n++
		}
	}
	return n
}
