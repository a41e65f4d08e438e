package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/zhaodongru/xv6-loongarch/kernel/proc"
)

// Exec implements subcommands.Command for the "exec" command.
type Exec struct {
	dump bool
}

// Name implements subcommands.Command.Name.
func (*Exec) Name() string {
	return "exec"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Exec) Synopsis() string {
	return "load an ELF executable into a fresh process"
}

// Usage implements subcommands.Command.Usage.
func (*Exec) Usage() string {
	return "exec [flags] <executable> [args...]\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (e *Exec) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&e.dump, "dump", false, "print the user mappings of the loaded image.")
}

// Execute implements subcommands.Command.Execute.
func (e *Exec) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	path := f.Arg(0)

	image, err := os.Open(path)
	if err != nil {
		return Errorf("%v", err)
	}
	defer image.Close()

	m, err := boot(args)
	if err != nil {
		return Errorf("%v", err)
	}
	c := m.CPUs[0]

	p, kerr := proc.UserInit(nil)
	if kerr != nil {
		return Errorf("userinit: %s", kerr)
	}
	defer p.Exit(c)

	if kerr = p.Exec(c, path, image, f.Args()); kerr != nil {
		return Errorf("exec %s: %s", path, kerr)
	}

	fmt.Fprintf(Output, "%s: pid %d asid %d size 0x%x entry 0x%x sp 0x%x\n", p.Name, p.PID, p.ASID(), p.Size, p.Entry, p.SP)
	if e.dump {
		dumpUserMappings(Output, p.PageTable())
	}
	return subcommands.ExitSuccess
}
