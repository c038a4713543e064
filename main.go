// main is the entry point of the pairwise CLI.
package main

import (
	"github.com/huangsam/pairwise/cmd"
	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/internal/runstore"
)

func main() {
	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	runstore.CloseStores()
	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}
