// Package cmd holds the implementations of the vmsim commands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/zhaodongru/xv6-loongarch/kernel/hal/bootinfo"
	"github.com/zhaodongru/xv6-loongarch/kernel/kmain"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/pmm/allocator"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/vmm"
)

// Output receives the command reports. Tests replace it.
var Output io.Writer = os.Stdout

// Errorf prints an error message and returns subcommands.ExitFailure.
func Errorf(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(Output, "vmsim: "+format+"\n", args...)
	return subcommands.ExitFailure
}

// boot starts the machine described by the first command argument.
func boot(args []interface{}) (*kmain.Machine, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing boot description")
	}
	info, ok := args[0].(*bootinfo.Info)
	if !ok {
		return nil, fmt.Errorf("missing boot description")
	}

	m, err := kmain.Kmain(*info)
	if err != nil {
		return nil, fmt.Errorf("boot failed: %s", err)
	}
	return m, nil
}

func freeFrames() int {
	return allocator.FrameAllocator.FreeCount()
}

// dumpUserMappings prints one line per user page mapped by pt.
func dumpUserMappings(w io.Writer, pt *vmm.PageTable) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "VIRT\tPHYS\tFLAGS\tASID")
	pt.Visit(func(m vmm.Mapping) bool {
		if m.Virt >= mem.KernBase {
			return false
		}
		fmt.Fprintf(tw, "0x%08x\t0x%08x\t%s\t%d\n", m.Virt, m.Phys, flagString(m.Flags), m.ASID)
		return true
	})
	tw.Flush()
}

func flagString(flags vmm.PageTableEntryFlag) string {
	s := []byte("----")
	for i, f := range []vmm.PageTableEntryFlag{vmm.FlagValid, vmm.FlagDirty, vmm.FlagGlobal, vmm.FlagUncached} {
		if flags&f == f {
			s[i] = "vdgu"[i]
		}
	}
	return string(s)
}
