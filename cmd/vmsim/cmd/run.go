package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/vmm"
	"github.com/zhaodongru/xv6-loongarch/kernel/proc"
)

// Run implements subcommands.Command for the "run" command. It creates the
// init process, grows and shrinks it, forks it and tears everything down,
// reporting the frame pool after every step.
type Run struct {
	initSize int
	growTo   uint
	dump     bool
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run the init/grow/shrink/fork/exit scenario"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return "run [flags]\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.IntVar(&r.initSize, "init-size", 50, "size in bytes of the init program.")
	f.UintVar(&r.growTo, "grow-to", 8192, "size in bytes the init process grows to.")
	f.BoolVar(&r.dump, "dump", false, "print the user mappings after every step.")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 || r.initSize < 0 || r.initSize >= int(mem.PageSize) {
		f.Usage()
		return subcommands.ExitUsageError
	}

	m, err := boot(args)
	if err != nil {
		return Errorf("%v", err)
	}
	c := m.CPUs[0]
	start := freeFrames()

	step := func(name string, p *proc.Proc) {
		fmt.Fprintf(Output, "%-8s pid %d size %d free frames %d\n", name, p.PID, p.Size, freeFrames())
		if r.dump && p.PageTable() != nil {
			dumpUserMappings(Output, p.PageTable())
		}
	}

	p, kerr := proc.UserInit(bytes.Repeat([]byte{0xAA}, r.initSize))
	if kerr != nil {
		return Errorf("userinit: %s", kerr)
	}
	vmm.SwitchUVM(c, p)
	step("init", p)

	initSize := p.Size
	if grow := int(r.growTo) - int(p.Size); grow > 0 {
		if kerr = p.Grow(c, grow); kerr != nil {
			return Errorf("grow: %s", kerr)
		}
		step("grow", p)
	}

	child, kerr := p.Fork()
	if kerr != nil {
		return Errorf("fork: %s", kerr)
	}
	step("fork", child)

	if kerr = p.Grow(c, int(initSize)-int(p.Size)); kerr != nil {
		return Errorf("shrink: %s", kerr)
	}
	step("shrink", p)

	buf := make([]byte, r.initSize)
	if kerr = child.PageTable().CopyIn(buf, 0); kerr != nil {
		return Errorf("copyin: %s", kerr)
	}
	if !bytes.Equal(buf, bytes.Repeat([]byte{0xAA}, r.initSize)) {
		return Errorf("child image does not hold the init program")
	}

	child.Exit(c)
	step("exit", child)
	p.Exit(c)
	step("exit", p)

	if end := freeFrames(); end != start {
		return Errorf("leaked %d frames", start-end)
	}
	return subcommands.ExitSuccess
}
