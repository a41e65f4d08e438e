// Package kmain brings up the simulated machine: physical memory, the frame
// allocator, the per-CPU contexts and the kernel-only page table.
package kmain

import (
	"github.com/sirupsen/logrus"

	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/cpu"
	"github.com/zhaodongru/xv6-loongarch/kernel/hal/bootinfo"
	"github.com/zhaodongru/xv6-loongarch/kernel/kfmt"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/pmm/allocator"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/vmm"
)

// Machine is a booted simulated machine.
type Machine struct {
	Info bootinfo.Info

	// CPUs holds one context per simulated CPU. Every CPU starts out
	// running on the kernel-only page table.
	CPUs []*cpu.CPU
}

// Kmain initializes the kernel memory subsystems using the supplied boot
// description. It may be called again to reboot with a fresh physical
// memory arena; page tables obtained before the reboot become invalid.
func Kmain(info bootinfo.Info) (*Machine, *kernel.Error) {
	var err *kernel.Error
	if err = kfmt.SetLevel(info.LogLevel); err != nil {
		return nil, err
	} else if err = mem.Init(info.Layout()); err != nil {
		return nil, err
	} else if err = allocator.Init(); err != nil {
		return nil, err
	}

	vmm.SetFrameAllocator(allocator.AllocFrame, allocator.FreeFrame)

	m := &Machine{Info: info, CPUs: make([]*cpu.CPU, info.CPUs)}
	for i := range m.CPUs {
		m.CPUs[i] = cpu.New(i, info.TLBEntries)
	}

	if err = vmm.KVMAlloc(m.CPUs[0]); err != nil {
		return nil, err
	}
	for _, c := range m.CPUs[1:] {
		vmm.SwitchKVM(c)
	}

	kfmt.WithModule("kmain").WithFields(logrus.Fields{
		"cpus":       len(m.CPUs),
		"free_pages": allocator.FrameAllocator.FreeCount(),
	}).Infof("booted with %d bytes of RAM, kernel data at 0x%x", info.PhysTop, info.KernelEnd)

	return m, nil
}
