package main

import (
	"os"

	illumefycmder "github.com/illumefy/illumefy-server/cmd/illumefy"
)

func main() {
	cmd := illumefycmder.NewIllumefyCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
