package main

import (
	"attendqr/cmd/attendqr/commands"
	"attendqr/lib/serviceutil"
	_ "time/tzdata"

	"github.com/charmbracelet/fang"
)

var version = "dev"

func main() {
	err := fang.Execute(
		serviceutil.SignalContext(),
		commands.NewRootCmd(),
		fang.WithVersion(version),
	)
	if err != nil {
		serviceutil.Fatal("attendqr exited with an error", err)
	}
}
