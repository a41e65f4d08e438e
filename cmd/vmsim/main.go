// Binary vmsim boots the simulated machine and drives the virtual memory
// manager through scripted scenarios.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/zhaodongru/xv6-loongarch/cmd/vmsim/cmd"
	"github.com/zhaodongru/xv6-loongarch/kernel/hal/bootinfo"
)

var (
	configPath = flag.String("config", "", "path to a TOML boot description; built-in defaults are used if empty.")
	logLevel   = flag.String("log-level", "", "overrides the log level of the boot description.")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(new(cmd.Boot), "")
	subcommands.Register(new(cmd.Run), "")
	subcommands.Register(new(cmd.Exec), "")
	subcommands.Register(new(cmd.Stress), "")

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	info := bootinfo.Default()
	if *configPath != "" {
		var err error
		if info, err = loadConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "vmsim: %v\n", err)
			os.Exit(int(subcommands.ExitUsageError))
		}
	}
	if *logLevel != "" {
		info.LogLevel = *logLevel
	}

	os.Exit(int(subcommands.Execute(context.Background(), &info)))
}

func loadConfig(path string) (bootinfo.Info, error) {
	info, err := bootinfo.Load(path)
	if err != nil {
		return info, fmt.Errorf("loading %s: %s", path, err)
	}
	return info, nil
}
