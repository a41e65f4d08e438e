package bootinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zhaodongru/xv6-loongarch/kernel"
	"github.com/zhaodongru/xv6-loongarch/kernel/mem"
)

func TestDecode(t *testing.T) {
	specs := []struct {
		descr     string
		input     string
		exp       Info
		expErr    *kernel.Error
		expAnyErr bool
	}{
		{
			descr: "empty description",
			input: "",
			exp:   Default(),
		},
		{
			descr: "overrides",
			input: "phys_top = 33554432\nkernel_end = 2097152\ncpus = 4\ntlb_entries = 16\nlog_level = \"debug\"\n",
			exp: Info{
				PhysTop:    32 << 20,
				KernelEnd:  2 << 20,
				CPUs:       4,
				TLBEntries: 16,
				LogLevel:   "debug",
			},
		},
		{
			descr:  "syntax error",
			input:  "phys_top = ",
			expErr: errDecode,
		},
		{
			descr:  "unknown key",
			input:  "swap = true\n",
			expErr: errUnknownKey,
		},
		{
			descr:  "no cpus",
			input:  "cpus = 0\n",
			expErr: errCPUCount,
		},
		{
			descr:  "no tlb",
			input:  "tlb_entries = 0\n",
			expErr: errTLBEntryCount,
		},
		{
			descr:     "kernel image past PhysTop",
			input:     "phys_top = 4194304\nkernel_end = 8388608\n",
			expAnyErr: true,
		},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			info, err := Decode(spec.input)
			switch {
			case spec.expAnyErr:
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			case spec.expErr != nil:
				if err != spec.expErr {
					t.Fatalf("expected error %v; got %v", spec.expErr, err)
				}
				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(spec.exp, info); diff != "" {
				t.Fatalf("unexpected boot info (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine.toml")
	if err := os.WriteFile(path, []byte("phys_top = 8388608\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	exp := mem.Layout{PhysTop: uintptr(8 * mem.Mb), KernelEnd: mem.DefaultLayout.KernelEnd}
	if got := info.Layout(); got != exp {
		t.Fatalf("expected layout %+v; got %+v", exp, got)
	}

	if _, err = Load(filepath.Join(t.TempDir(), "missing.toml")); err != errDecode {
		t.Fatalf("expected errDecode for a missing file; got %v", err)
	}
}
