package cmd

import (
	"context"
	"flag"
	"fmt"
	"math/rand"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"github.com/zhaodongru/xv6-loongarch/kernel/cpu"
	"github.com/zhaodongru/xv6-loongarch/kernel/hal/bootinfo"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/vmm"
	"github.com/zhaodongru/xv6-loongarch/kernel/proc"
)

// Stress implements subcommands.Command for the "stress" command. Every
// simulated CPU runs its own stream of processes concurrently with the
// others; they only share the frame pool and the kernel page table.
type Stress struct {
	cpus       int
	iterations int
	maxPages   int
	seed       int64
}

// Name implements subcommands.Command.Name.
func (*Stress) Name() string {
	return "stress"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Stress) Synopsis() string {
	return "create, grow, fork and destroy processes on every CPU concurrently"
}

// Usage implements subcommands.Command.Usage.
func (*Stress) Usage() string {
	return "stress [flags]\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Stress) SetFlags(f *flag.FlagSet) {
	f.IntVar(&s.cpus, "cpus", 0, "number of CPUs; overrides the boot description if set.")
	f.IntVar(&s.iterations, "iterations", 100, "processes created per CPU.")
	f.IntVar(&s.maxPages, "max-pages", 16, "largest process size in pages.")
	f.Int64Var(&s.seed, "seed", 1, "random seed.")
}

// Execute implements subcommands.Command.Execute.
func (s *Stress) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 || s.iterations < 0 || s.maxPages < 1 || s.cpus < 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	if info, ok := firstArg(args).(*bootinfo.Info); ok && s.cpus > 0 {
		withCPUs := *info
		withCPUs.CPUs = s.cpus
		args = append([]interface{}{&withCPUs}, args[1:]...)
	}

	m, err := boot(args)
	if err != nil {
		return Errorf("%v", err)
	}
	start := freeFrames()

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range m.CPUs {
		c := c
		rnd := rand.New(rand.NewSource(s.seed + int64(c.ID)))
		g.Go(func() error {
			for i := 0; i < s.iterations; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := s.cycle(c, rnd); err != nil {
					return fmt.Errorf("cpu %d iteration %d: %s", c.ID, i, err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Errorf("%v", err)
	}

	if end := freeFrames(); end != start {
		return Errorf("leaked %d frames", start-end)
	}
	fmt.Fprintf(Output, "%d processes on %d cpus, free frames: %d\n", 2*s.iterations*len(m.CPUs), len(m.CPUs), start)
	return subcommands.ExitSuccess
}

// cycle runs one process lifetime on c: init, grow, fork, shrink the child,
// run both and exit.
func (s *Stress) cycle(c *cpu.CPU, rnd *rand.Rand) error {
	p, err := proc.UserInit([]byte{byte(c.ID)})
	if err != nil {
		return err
	}
	defer p.Exit(c)

	if err = p.Grow(c, rnd.Intn(s.maxPages)*int(mem.PageSize)+rnd.Intn(int(mem.PageSize))); err != nil {
		return err
	}

	child, err := p.Fork()
	if err != nil {
		return err
	}
	defer child.Exit(c)

	if err = child.Grow(nil, -rnd.Intn(int(child.Size-uintptr(mem.PageSize))+1)); err != nil {
		return err
	}
	vmm.SwitchUVM(c, child)

	marker := make([]byte, 1)
	if err = child.PageTable().CopyIn(marker, 0); err != nil {
		return err
	}
	if marker[0] != byte(c.ID) {
		return fmt.Errorf("child of pid %d sees 0x%x at address 0", p.PID, marker[0])
	}
	return nil
}

func firstArg(args []interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
