package cmd

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/zhaodongru/xv6-loongarch/kernel/mem/pmm/allocator"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/vmm"
)

// Boot implements subcommands.Command for the "boot" command.
type Boot struct{}

// Name implements subcommands.Command.Name.
func (*Boot) Name() string {
	return "boot"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Boot) Synopsis() string {
	return "boot the machine and print the kernel memory map"
}

// Usage implements subcommands.Command.Usage.
func (*Boot) Usage() string {
	return "boot\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Boot) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Boot) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	m, err := boot(args)
	if err != nil {
		return Errorf("%v", err)
	}

	tw := tabwriter.NewWriter(Output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "VIRT\tPHYS START\tPHYS END\tFLAGS")
	for _, r := range vmm.KernelMap() {
		fmt.Fprintf(tw, "0x%08x\t0x%08x\t0x%09x\t%s\n", r.Virt, r.PhysStart, r.PhysEnd, flagString(r.Flags|vmm.FlagValid))
	}
	tw.Flush()

	fmt.Fprintf(Output, "cpus: %d, kernel table at 0x%x, free frames: %d of %d\n",
		len(m.CPUs), vmm.KernelPageTable().Root().Address(), freeFrames(), allocator.FrameAllocator.TotalCount())
	return subcommands.ExitSuccess
}
