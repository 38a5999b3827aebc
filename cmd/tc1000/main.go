package main

import (
	"context"
	"os"

	"github.com/ftl/tc1000/cmd/tc1000/commands"
)

var (
	version   = "development"
	buildDate = "unknown"
)

func main() {
	info := commands.Info{
		Version: version,
		Date:    buildDate,
	}
	cmd := commands.RootCmd(info)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
