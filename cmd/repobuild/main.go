package main

import (
	"github.com/ionosphere/repobuild/pkg/cli"
	"github.com/ionosphere/repobuild/pkg/util/console"
)

func main() {
	cmd, err := cli.NewRootCommand()
	if err != nil {
		console.Fatalf("%s", err)
	}

	if err := cmd.Execute(); err != nil {
		console.Fatalf("%s", err)
	}
}
