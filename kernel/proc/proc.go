// Package proc implements the process side of address-space management:
// creating the first process, growing and shrinking a process image,
// duplicating it on fork, replacing it on exec and tearing it down on exit.
package proc

import (
	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/cpu"
	"github.com/zhaodongru/xv6-loongarch/kernel/kfmt"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/vmm"
)

var (
	// panicFn is used by tests to intercept fatal errors.
	panicFn = kfmt.Panic

	log = kfmt.WithModule("proc")

	// ErrNegativeSize is returned when shrinking a process below size 0.
	ErrNegativeSize = &kernel.Error{Module: "proc", Message: "process size would become negative"}

	errNotAlive = &kernel.Error{Module: "proc", Message: "process has exited"}
)

// State is the lifecycle state of a process.
type State uint8

const (
	// Runnable processes own an address space.
	Runnable State = iota

	// Zombie processes have exited and released their address space.
	Zombie
)

// Proc is a process as seen by the memory manager.
type Proc struct {
	PID    int
	Name   string
	State  State
	Parent *Proc

	// Size is the size of the user image in bytes; user memory spans
	// [0, Size).
	Size uintptr

	// Entry and SP hold the user program counter and stack pointer the
	// process starts running with.
	Entry uintptr
	SP    uintptr

	asid  vmm.ASID
	pgdir *vmm.PageTable
}

// PageTable returns the root table of the process address space.
func (p *Proc) PageTable() *vmm.PageTable {
	return p.pgdir
}

// ASID returns the address-space identifier of the process.
func (p *Proc) ASID() vmm.ASID {
	return p.asid
}

func newProc(name string) (*Proc, *kernel.Error) {
	pid, asid, err := ids.alloc()
	if err != nil {
		return nil, err
	}

	pgdir, err := vmm.SetupKVM()
	if err != nil {
		ids.release(asid)
		return nil, err
	}

	return &Proc{PID: pid, Name: name, asid: asid, pgdir: pgdir}, nil
}

// UserInit creates the first user process. Its image is a single page
// holding initCode, which starts executing at address 0.
func UserInit(initCode []byte) (*Proc, *kernel.Error) {
	p, err := newProc("initcode")
	if err != nil {
		return nil, err
	}

	if err = p.pgdir.InitUVM(p.asid, initCode); err != nil {
		p.release()
		return nil, err
	}

	p.Size = uintptr(mem.PageSize)
	p.SP = uintptr(mem.PageSize)
	log.WithField("pid", p.PID).Debugf("init process created with asid %d", p.asid)
	return p, nil
}

// Grow changes the size of the process image by n bytes. If c is not nil
// the address space is reloaded on c afterwards.
func (p *Proc) Grow(c *cpu.CPU, n int) *kernel.Error {
	if p.State != Runnable {
		return errNotAlive
	}

	size := p.Size
	switch {
	case n > 0:
		newSize, err := p.pgdir.Grow(p.asid, size, size+uintptr(n))
		if err != nil {
			return err
		}
		size = newSize
	case n < 0:
		if uintptr(-n) > size {
			return ErrNegativeSize
		}
		size = p.pgdir.Shrink(size, size-uintptr(-n))
	}

	p.Size = size
	if c != nil {
		vmm.SwitchUVM(c, p)
	}
	return nil
}

// Fork creates a child process holding a private copy of the image of p.
func (p *Proc) Fork() (*Proc, *kernel.Error) {
	if p.State != Runnable {
		return nil, errNotAlive
	}

	pid, asid, err := ids.alloc()
	if err != nil {
		return nil, err
	}

	pgdir, err := p.pgdir.Copy(asid, p.Size)
	if err != nil {
		ids.release(asid)
		return nil, err
	}

	child := &Proc{
		PID:    pid,
		Name:   p.Name,
		Parent: p,
		Size:   p.Size,
		Entry:  p.Entry,
		SP:     p.SP,
		asid:   asid,
		pgdir:  pgdir,
	}
	log.WithField("pid", p.PID).Debugf("forked child %d with asid %d", child.PID, asid)
	return child, nil
}

// Exit releases the address space of p. If c is not nil it switches c to
// the kernel-only page table first and drops the translations cached for
// the process.
func (p *Proc) Exit(c *cpu.CPU) {
	if p.State != Runnable {
		return
	}

	if c != nil {
		vmm.SwitchKVM(c)
		c.FlushTLB()
	}

	p.release()
	p.State = Zombie
	log.WithField("pid", p.PID).Debug("exited")
}

func (p *Proc) release() {
	p.pgdir.Free()
	p.pgdir = nil
	if err := ids.release(p.asid); err != nil {
		panicFn(err)
	}
}
