package main

import (
	"github.com/rwaledger/pledge-core/cmd/pledge/cmd"
)

// Pledge Platform CLI
//
func main() {
	cmd.Execute()
}
