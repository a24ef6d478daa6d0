// Command stockctl is a terminal client for the stock dashboard. It drives
// the same controller as the web portal against the same backend.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// register adds every stockctl command to the commander.
func register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&stocksCmd{}, "dashboard")
	c.Register(&statsCmd{}, "dashboard")
	c.Register(&chartCmd{}, "dashboard")
	c.Register(&updateCmd{}, "dashboard")
	c.Register(&stockCmd{}, "backend")
	c.Register(&companiesCmd{}, "backend")
	c.Register(&mcpCmd{}, "backend")
}
