// Package main provides the braid command-line interface.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "braid",
		Usage:                 "Decompose AI pipeline canvases into workflows and run them",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			apiCommand(),
			runCommand(),
			validateCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
