package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"finance/internal/cli"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	for _, c := range cli.Commands {
		subcommands.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
