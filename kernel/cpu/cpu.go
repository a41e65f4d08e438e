// Package cpu models the per-CPU state that the memory manager touches: the
// page table root register, a software-visible TLB and the interrupt enable
// flag. The kernel runs hosted, so each CPU is a plain value owned by the
// goroutine that schedules on it.
package cpu

import (
	"os"

	"github.com/zhaodongru/xv6-loongarch/kernel"
)

const haltExitCode = 2

var (
	// exitFn is mocked by tests.
	exitFn = os.Exit

	errPopCLIInterruptible = &kernel.Error{Module: "cpu", Message: "popcli - interruptible"}
	errPopCLIUnbalanced    = &kernel.Error{Module: "cpu", Message: "popcli"}
)

// Halt stops instruction execution. On the hosted machine this terminates the
// process.
func Halt() {
	exitFn(haltExitCode)
}

// CPU holds the state of a single hardware thread.
type CPU struct {
	// ID is the index of this CPU.
	ID int

	tlb TLB

	// pgdl is the physical address of the active root page table.
	pgdl uintptr

	// ncli counts the depth of PushCLI calls and intena records whether
	// interrupts were enabled before the outermost PushCLI.
	ncli   int
	intena bool

	interruptsEnabled bool
}

// New returns a CPU with interrupts disabled and a TLB with the requested
// number of entries.
func New(id, tlbEntries int) *CPU {
	c := &CPU{ID: id}
	c.tlb.init(tlbEntries)
	return c
}

// EnableInterrupts enables interrupt handling.
func (c *CPU) EnableInterrupts() {
	c.interruptsEnabled = true
}

// DisableInterrupts disables interrupt handling.
func (c *CPU) DisableInterrupts() {
	c.interruptsEnabled = false
}

// InterruptsEnabled reports whether interrupts are currently enabled.
func (c *CPU) InterruptsEnabled() bool {
	return c.interruptsEnabled
}

// PushCLI disables interrupts. Calls nest: it takes as many PopCLI calls as
// PushCLI calls to restore the interrupt state that was in effect before the
// outermost PushCLI.
func (c *CPU) PushCLI() {
	enabled := c.interruptsEnabled
	c.DisableInterrupts()
	if c.ncli == 0 {
		c.intena = enabled
	}
	c.ncli++
}

// PopCLI undoes one PushCLI.
func (c *CPU) PopCLI() {
	if c.interruptsEnabled {
		panic(errPopCLIInterruptible)
	}
	c.ncli--
	if c.ncli < 0 {
		c.ncli = 0
		panic(errPopCLIUnbalanced)
	}
	if c.ncli == 0 && c.intena {
		c.EnableInterrupts()
	}
}

// SwitchPDT sets the root page table register to point to the specified
// physical address. TLB entries are tagged with an asid so the TLB is not
// flushed.
func (c *CPU) SwitchPDT(pdtPhysAddr uintptr) {
	c.pgdl = pdtPhysAddr
}

// ActivePDT returns the physical address of the currently active page table.
func (c *CPU) ActivePDT() uintptr {
	return c.pgdl
}

// TLBWrite installs the even/odd EntryLo pair for the page pair containing
// virtAddr, tagged with asid.
func (c *CPU) TLBWrite(virtAddr uintptr, asid uint8, lo0, lo1 uint32) {
	c.tlb.write(TLBEntry{VPN2: virtAddr >> vpn2Shift, ASID: asid, Lo0: lo0, Lo1: lo1})
}

// TLBProbe looks up the TLB entry covering virtAddr for asid.
func (c *CPU) TLBProbe(virtAddr uintptr, asid uint8) (TLBEntry, bool) {
	return c.tlb.probe(virtAddr>>vpn2Shift, asid)
}

// FlushTLB invalidates every TLB entry.
func (c *CPU) FlushTLB() {
	c.tlb.flush()
}
