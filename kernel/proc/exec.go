package proc

import (
	"debug/elf"
	"encoding/binary"
	"io"
	"path"

	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/cpu"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem/vmm"
)

const (
	// MaxArgs is the maximum number of arguments passed to Exec.
	MaxArgs = 32

	// stackPages is the size of the user stack. The lower page is a guard
	// page.
	stackPages = 2

	// fakeReturnPC is pushed as the return address of the user entry
	// point.
	fakeReturnPC = 0xffffffff

	wordSize = 4
)

var (
	// ErrBadExecutable is returned when the image passed to Exec is not a
	// loadable ELF executable.
	ErrBadExecutable = &kernel.Error{Module: "proc", Message: "bad executable"}

	// ErrTooManyArgs is returned when Exec is given more than MaxArgs
	// arguments.
	ErrTooManyArgs = &kernel.Error{Module: "proc", Message: "too many arguments"}
)

// Exec replaces the image of p with the ELF executable read from image. On
// success the process starts at the executable's entry point with argv laid
// out on a fresh stack:
//
//	sp+0:  fake return address
//	sp+4:  argc
//	sp+8:  pointer to argv[0]
//	sp+12: argv[0] ... argv[argc-1], 0
//
// followed by the argument strings. If c is not nil the new address space
// is activated on c. On failure the old image is left untouched.
func (p *Proc) Exec(c *cpu.CPU, name string, image io.ReaderAt, argv []string) *kernel.Error {
	if p.State != Runnable {
		return errNotAlive
	}
	if len(argv) > MaxArgs {
		return ErrTooManyArgs
	}

	f, goErr := elf.NewFile(image)
	if goErr != nil {
		return ErrBadExecutable
	}
	defer f.Close()

	pgdir, err := vmm.SetupKVM()
	if err != nil {
		return err
	}

	size, sp, err := p.loadImage(pgdir, f, image, argv)
	if err != nil {
		pgdir.Free()
		return err
	}

	old := p.pgdir
	p.pgdir = pgdir
	p.Size = size
	p.Entry = uintptr(f.Entry)
	p.SP = sp
	p.Name = path.Base(name)

	// The asid is kept, so translations of the old image must go.
	if c != nil {
		c.FlushTLB()
		vmm.SwitchUVM(c, p)
	}
	old.Free()

	log.WithField("pid", p.PID).Debugf("exec %s: size 0x%x entry 0x%x", p.Name, p.Size, p.Entry)
	return nil
}

// loadImage maps the loadable segments of f and the user stack into pgdir
// and copies argv onto the stack. It returns the image size and the initial
// stack pointer.
func (p *Proc) loadImage(pgdir *vmm.PageTable, f *elf.File, image io.ReaderAt, argv []string) (uintptr, uintptr, *kernel.Error) {
	var (
		size uintptr
		err  *kernel.Error
	)

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		end := prog.Vaddr + prog.Memsz
		switch {
		case prog.Memsz < prog.Filesz,
			end < prog.Vaddr,
			end > uint64(mem.KernBase),
			prog.Vaddr%uint64(mem.PageSize) != 0:
			return 0, 0, ErrBadExecutable
		}

		if uintptr(end) > size {
			if size, err = pgdir.Grow(p.asid, size, uintptr(end)); err != nil {
				return 0, 0, err
			}
		}

		if err = pgdir.LoadSegment(uintptr(prog.Vaddr), image, uintptr(prog.Off), uintptr(prog.Filesz)); err != nil {
			return 0, 0, err
		}
	}

	// The stack goes on the page boundary after the image.
	size = mem.PageRoundUp(size)
	if size, err = pgdir.Grow(p.asid, size, size+stackPages*uintptr(mem.PageSize)); err != nil {
		return 0, 0, err
	}
	pgdir.ClearPTEU(size - stackPages*uintptr(mem.PageSize))

	sp, err := pushArgs(pgdir, size, argv)
	if err != nil {
		return 0, 0, err
	}

	return size, sp, nil
}

// pushArgs copies the argument strings and the initial call frame below sp.
func pushArgs(pgdir *vmm.PageTable, sp uintptr, argv []string) (uintptr, *kernel.Error) {
	stackBottom := sp - uintptr(mem.PageSize)
	frame := make([]uint32, 3+len(argv)+1)

	for i, arg := range argv {
		n := uintptr(len(arg) + 1)
		if n > sp-stackBottom {
			return 0, ErrTooManyArgs
		}

		sp = (sp - n) &^ (wordSize - 1)
		if err := pgdir.CopyOut(sp, append([]byte(arg), 0)); err != nil {
			return 0, err
		}
		frame[3+i] = uint32(sp)
	}
	frame[3+len(argv)] = 0

	frameSize := uintptr(len(frame) * wordSize)
	if frameSize > sp-stackBottom {
		return 0, ErrTooManyArgs
	}

	frame[0] = fakeReturnPC
	frame[1] = uint32(len(argv))
	frame[2] = uint32(sp - (uintptr(len(argv))+1)*wordSize)
	sp -= frameSize

	buf := make([]byte, frameSize)
	for i, word := range frame {
		binary.LittleEndian.PutUint32(buf[i*wordSize:], word)
	}
	if err := pgdir.CopyOut(sp, buf); err != nil {
		return 0, err
	}

	return sp, nil
}
