// Package main is the depthmesh command itself.
package main

import (
	"os"

	"go.viam.com/depthmesh/cli"
	"go.viam.com/depthmesh/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("depthmesh").Error(err)
		os.Exit(1)
	}
}
