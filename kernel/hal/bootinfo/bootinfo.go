// Package bootinfo decodes the boot-time description of the simulated
// machine: how much RAM it has, where the kernel image ends, the size of
// each CPU's TLB and the initial log level.
package bootinfo

import (
	"github.com/BurntSushi/toml"

	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
)

var (
	errDecode        = &kernel.Error{Module: "bootinfo", Message: "malformed boot description"}
	errUnknownKey    = &kernel.Error{Module: "bootinfo", Message: "unknown key in boot description"}
	errCPUCount      = &kernel.Error{Module: "bootinfo", Message: "cpus must be at least 1"}
	errTLBEntryCount = &kernel.Error{Module: "bootinfo", Message: "tlb_entries must be at least 1"}
)

// Info describes the machine the kernel boots on.
type Info struct {
	// PhysTop is the amount of RAM in bytes (PHYSTOP).
	PhysTop uint64 `toml:"phys_top"`

	// KernelEnd is the physical address where the kernel's data begins.
	KernelEnd uint64 `toml:"kernel_end"`

	// CPUs is the number of simulated CPUs.
	CPUs int `toml:"cpus"`

	// TLBEntries is the number of entries in each CPU's TLB.
	TLBEntries int `toml:"tlb_entries"`

	// LogLevel is the initial kernel log level.
	LogLevel string `toml:"log_level"`
}

// Default returns the boot description used when no file is supplied.
func Default() Info {
	return Info{
		PhysTop:    uint64(mem.DefaultLayout.PhysTop),
		KernelEnd:  uint64(mem.DefaultLayout.KernelEnd),
		CPUs:       1,
		TLBEntries: 64,
		LogLevel:   "info",
	}
}

// Decode parses a TOML boot description. Keys that are not present keep
// their default values.
func Decode(data string) (Info, *kernel.Error) {
	info := Default()
	md, err := toml.Decode(data, &info)
	if err != nil {
		return info, errDecode
	}
	return info, info.validate(md)
}

// Load reads and parses the boot description stored at path.
func Load(path string) (Info, *kernel.Error) {
	info := Default()
	md, err := toml.DecodeFile(path, &info)
	if err != nil {
		return info, errDecode
	}
	return info, info.validate(md)
}

func (info *Info) validate(md toml.MetaData) *kernel.Error {
	if len(md.Undecoded()) != 0 {
		return errUnknownKey
	}

	switch {
	case info.CPUs < 1:
		return errCPUCount
	case info.TLBEntries < 1:
		return errTLBEntryCount
	}

	return info.Layout().Validate()
}

// Layout returns the memory layout described by info.
func (info *Info) Layout() mem.Layout {
	return mem.Layout{
		PhysTop:   uintptr(info.PhysTop),
		KernelEnd: uintptr(info.KernelEnd),
	}
}
